// Command seatplan-preview runs the seat matcher over a YAML scenario file
// without touching a database. It prints the proposed placement so a
// scenario can be checked before anyone commits it.
//
// Scenario format:
//
//	projects:            # listing order is the fallback order
//	  - id: apollo
//	    seats: 1
//	  - id: gemini
//	    seats: 2
//	members: [ann, bob]  # pool order; defaults to first appearance in choices
//	choices:
//	  - {member: ann, project: apollo, rank: 1}
//	  - {member: bob, project: apollo, rank: 1}
//	  - {member: bob, project: gemini, rank: 2}
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dalemusser/seatplan/internal/domain/allocation"
	"gopkg.in/yaml.v3"
)

type scenario struct {
	Projects []struct {
		ID    string `yaml:"id"`
		Seats int    `yaml:"seats"`
	} `yaml:"projects"`
	Members []string `yaml:"members"`
	Choices []struct {
		Member  string `yaml:"member"`
		Project string `yaml:"project"`
		Rank    int    `yaml:"rank"`
	} `yaml:"choices"`
}

type placement struct {
	Project string   `yaml:"project" json:"projectId"`
	Members []string `yaml:"members" json:"userIds"`
}

type output struct {
	Projects []placement `yaml:"projects" json:"preview"`
	Unplaced []string    `yaml:"unplaced" json:"unplaced"`
}

func main() {
	file := flag.String("f", "-", "scenario file (YAML); - reads stdin")
	format := flag.String("format", "yaml", "output format: yaml or json")
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *file != "-" {
		fh, err := os.Open(*file)
		if err != nil {
			die("open scenario: %v", err)
		}
		defer fh.Close()
		in = fh
	}

	if err := run(in, os.Stdout, *format); err != nil {
		die("%v", err)
	}
}

func run(in io.Reader, out io.Writer, format string) error {
	var sc scenario
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("scenario is empty")
		}
		return fmt.Errorf("parse scenario: %w", err)
	}

	res, err := preview(sc)
	if err != nil {
		return err
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

func preview(sc scenario) (output, error) {
	seats := make([]allocation.ProjectSeats, 0, len(sc.Projects))
	for _, p := range sc.Projects {
		seats = append(seats, allocation.ProjectSeats{ProjectID: p.ID, Remaining: p.Seats})
	}
	snap, err := allocation.NewCapacitySnapshot(seats)
	if err != nil {
		return output{}, err
	}

	choices := make([]allocation.RankedChoice, 0, len(sc.Choices))
	for _, c := range sc.Choices {
		choices = append(choices, allocation.RankedChoice{MemberID: c.Member, ProjectID: c.Project, Rank: c.Rank})
	}
	prefs, err := allocation.NewPreferenceIndex(choices)
	if err != nil {
		return output{}, err
	}

	pool := sc.Members
	if len(pool) == 0 {
		seen := make(map[string]bool)
		for _, c := range sc.Choices {
			if !seen[c.Member] {
				seen[c.Member] = true
				pool = append(pool, c.Member)
			}
		}
	}
	if err := allocation.ValidatePool(pool); err != nil {
		return output{}, err
	}

	res := allocation.Match(pool, prefs, snap)
	out := output{
		Projects: make([]placement, 0, len(res.Projects)),
		Unplaced: res.Unplaced,
	}
	for _, p := range res.Projects {
		members := p.MemberIDs
		if members == nil {
			members = []string{}
		}
		out.Projects = append(out.Projects, placement{Project: p.ProjectID, Members: members})
	}
	if out.Unplaced == nil {
		out.Unplaced = []string{}
	}
	return out, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
