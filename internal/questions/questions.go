// Package questions loads location packs and turns them into quiz rounds.
package questions

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

const (
	DefaultRoundSize = 10
	wrongOptions     = 3
)

var ErrEmptyPack = errors.New("question pack has no locations")

type Pack struct {
	Games []Game `yaml:"games"`
}

type Game struct {
	Name       string `yaml:"name"`
	GeneralMap string `yaml:"generalMap"`
	Zones      []Zone `yaml:"zones"`
}

type Zone struct {
	Name      string     `yaml:"name"`
	Image     string     `yaml:"image"`
	Locations []Location `yaml:"locations"`
}

type Location struct {
	Name  string `yaml:"name"`
	Image string `yaml:"image"`
}

func Load(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pack: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing pack: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Pack) validate() error {
	n := 0
	for gi, g := range p.Games {
		for zi, z := range g.Zones {
			for li, l := range z.Locations {
				if l.Name == "" || l.Image == "" {
					return fmt.Errorf("games[%d].zones[%d].locations[%d]: name and image are required", gi, zi, li)
				}
				n++
			}
		}
	}
	if n == 0 {
		return ErrEmptyPack
	}
	return nil
}

type entry struct {
	game string
	loc  Location
}

func (p *Pack) entries() []entry {
	var out []entry
	for _, g := range p.Games {
		for _, z := range g.Zones {
			for _, l := range z.Locations {
				out = append(out, entry{game: g.Name, loc: l})
			}
		}
	}
	return out
}

// Round draws up to size random locations. Each question offers the right
// name plus up to three wrong ones from the same game, shuffled.
func (p *Pack) Round(size int, rng *rand.Rand) []types.Question {
	if size <= 0 {
		size = DefaultRoundSize
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	all := p.entries()
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	picked := all[:min(size, len(all))]

	out := make([]types.Question, 0, len(picked))
	for _, e := range picked {
		out = append(out, types.Question{
			Name:    e.loc.Name,
			Image:   e.loc.Image,
			Options: p.options(e, rng),
		})
	}
	return out
}

func (p *Pack) options(correct entry, rng *rand.Rand) []string {
	var wrong []string
	seen := map[string]bool{correct.loc.Name: true}
	for _, e := range p.entries() {
		if e.game != correct.game || seen[e.loc.Name] {
			continue
		}
		seen[e.loc.Name] = true
		wrong = append(wrong, e.loc.Name)
	}
	rng.Shuffle(len(wrong), func(i, j int) { wrong[i], wrong[j] = wrong[j], wrong[i] })

	opts := append([]string{correct.loc.Name}, wrong[:min(wrongOptions, len(wrong))]...)
	rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	return opts
}
