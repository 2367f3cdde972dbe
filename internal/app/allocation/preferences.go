package allocation

import (
	"context"
	"errors"

	preferencestore "github.com/dalemusser/seatplan/internal/app/store/preferences"
	"github.com/dalemusser/seatplan/internal/app/system/txn"
	"github.com/dalemusser/seatplan/internal/domain/errs"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Choice is one entry of a submitted preference list.
type Choice struct {
	ProjectID primitive.ObjectID
	Rank      int
}

// SubmitPreferences replaces the user's ranked list for a company.
//
// The user must be an active company member, or an active member of the
// company's enterprise, in which case a member company membership is
// created. Ranks must be at least 1 and unique; projects must be unique,
// active and in the company.
func (s *Service) SubmitPreferences(ctx context.Context, companyID, userID primitive.ObjectID, choices []Choice) ([]models.Preference, error) {
	c, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}

	isMember, err := s.gate.IsCompanyMember(ctx, c, userID)
	if err != nil {
		return nil, err
	}
	join := false
	if !isMember {
		ok, err := s.inScope(ctx, c, userID)
		if err := s.require(ctx, ok, err, userID, "submit preferences", companyScope(c)); err != nil {
			return nil, err
		}
		join = true
	}

	if err := s.validateChoices(ctx, c.ID, choices); err != nil {
		return nil, err
	}

	list := make([]preferencestore.Choice, 0, len(choices))
	for _, ch := range choices {
		list = append(list, preferencestore.Choice{ProjectID: ch.ProjectID, Rank: ch.Rank})
	}

	var saved []models.Preference
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if join {
			if _, err := s.memberships.Ensure(ctx, c.ID, userID); err != nil {
				return err
			}
		}
		var err error
		saved, err = s.prefs.Replace(ctx, c.ID, userID, list)
		if err != nil {
			if errors.Is(err, preferencestore.ErrDuplicateRank) {
				return errs.Validation("preferences", "%s", err.Error())
			}
			return err
		}
		_, err = s.memberships.SetAllocationStatus(ctx, c.ID, []primitive.ObjectID{userID}, models.AllocationPreferenceSubmitted)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.PreferencesSubmitted(ctx, userID, c.ID, len(saved))
	return saved, nil
}

// validateChoices enforces the list rules against the company's active projects.
func (s *Service) validateChoices(ctx context.Context, companyID primitive.ObjectID, choices []Choice) error {
	if len(choices) == 0 {
		return errs.Validation("preferences", "at least one choice is required")
	}
	ranks := make(map[int]bool, len(choices))
	seen := make(map[primitive.ObjectID]bool, len(choices))
	ids := make([]primitive.ObjectID, 0, len(choices))
	for _, ch := range choices {
		if ch.Rank < 1 {
			return errs.Validation("rank", "ranks start at 1; got %d", ch.Rank)
		}
		if ranks[ch.Rank] {
			return errs.Validation("rank", "rank %d is used more than once", ch.Rank)
		}
		if seen[ch.ProjectID] {
			return errs.Validation("projectId", "project %s is ranked more than once", ch.ProjectID.Hex())
		}
		ranks[ch.Rank] = true
		seen[ch.ProjectID] = true
		ids = append(ids, ch.ProjectID)
	}

	found, err := s.projects.ListInCompany(ctx, companyID, ids)
	if err != nil {
		return err
	}
	active := make(map[primitive.ObjectID]bool, len(found))
	for _, p := range found {
		if p.IsActive {
			active[p.ID] = true
		}
	}
	for _, id := range ids {
		if !active[id] {
			return errs.Validation("projectId", "project %s is not an active project of this company", id.Hex())
		}
	}
	return nil
}

// ListPreferences returns the caller's own list in rank order. Company
// owners, admins and staff get every list in the company.
func (s *Service) ListPreferences(ctx context.Context, companyID, userID primitive.ObjectID) ([]models.Preference, error) {
	c, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}
	manager, err := s.gate.CanManageCompany(ctx, c, userID)
	if err != nil {
		return nil, err
	}
	if manager {
		return s.prefs.ListByCompany(ctx, c.ID)
	}
	ok, err := s.inScope(ctx, c, userID)
	if err := s.require(ctx, ok, err, userID, "list preferences", companyScope(c)); err != nil {
		return nil, err
	}
	return s.prefs.ListForUser(ctx, c.ID, userID)
}

// ClearPreferences withdraws the user's list. The membership returns to
// unallocated unless the user still holds a seat in the company.
func (s *Service) ClearPreferences(ctx context.Context, companyID, userID primitive.ObjectID) error {
	c, err := s.company(ctx, companyID)
	if err != nil {
		return err
	}
	ok, err := s.gate.IsCompanyMember(ctx, c, userID)
	if err := s.require(ctx, ok, err, userID, "clear preferences", companyScope(c)); err != nil {
		return err
	}

	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if _, err := s.prefs.DeleteForUser(ctx, c.ID, userID); err != nil {
			return err
		}
		seats, err := s.assignments.CountForUser(ctx, userID, []primitive.ObjectID{c.ID})
		if err != nil {
			return err
		}
		if seats > 0 {
			return nil
		}
		_, err = s.memberships.SetAllocationStatus(ctx, c.ID, []primitive.ObjectID{userID}, models.AllocationUnallocated)
		return err
	})
	if err != nil {
		return err
	}

	s.audit.PreferencesCleared(ctx, userID, c.ID)
	return nil
}

// SubmitEnterprisePreference records a pending request by an enterprise
// member to be placed, optionally naming a company and a project in it.
func (s *Service) SubmitEnterprisePreference(ctx context.Context, enterpriseID, userID primitive.ObjectID, companyID, projectID *primitive.ObjectID) (models.EnterprisePreference, error) {
	if _, err := s.enterprise(ctx, enterpriseID); err != nil {
		return models.EnterprisePreference{}, err
	}
	ok, err := s.gate.IsEnterpriseMember(ctx, enterpriseID, userID)
	if err := s.require(ctx, ok, err, userID, "submit preference", enterpriseScope(enterpriseID)); err != nil {
		return models.EnterprisePreference{}, err
	}

	if projectID != nil && companyID == nil {
		return models.EnterprisePreference{}, errs.Validation("companyId", "required when projectId is given")
	}
	if companyID != nil {
		c, err := s.company(ctx, *companyID)
		if err != nil {
			return models.EnterprisePreference{}, err
		}
		if c.EnterpriseID == nil || *c.EnterpriseID != enterpriseID {
			return models.EnterprisePreference{}, errs.NotFound("company", companyID.Hex())
		}
		if projectID != nil {
			p, err := s.project(ctx, c.ID, *projectID)
			if err != nil {
				return models.EnterprisePreference{}, err
			}
			if !p.IsActive {
				return models.EnterprisePreference{}, errs.Validation("projectId", "project %s is not active", p.ID.Hex())
			}
		}
	}

	pref, err := s.userPrefs.Create(ctx, models.EnterprisePreference{
		EnterpriseID: enterpriseID,
		UserID:       userID,
		CompanyID:    companyID,
		ProjectID:    projectID,
	})
	if err != nil {
		return models.EnterprisePreference{}, err
	}
	s.log.Info("enterprise preference submitted",
		zap.String("enterprise_id", enterpriseID.Hex()),
		zap.String("user_id", userID.Hex()),
		zap.String("preference_id", pref.ID.Hex()))
	return pref, nil
}
