// Package demo is a small Star Wars schema served by `gqlexec serve`. It binds
// every resolver flavour the engine supports: accessors, plain functions,
// futures, batched friends lookups, a per-request resolver class and a
// flag-set enum.
package demo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hanpama/gqlexec/internal/introspection"
	schema "github.com/hanpama/gqlexec/internal/schema"
)

const SDL = `
"The original trilogy, exposed through every resolver flavour of the engine."
schema {
  query: Query
  mutation: Mutation
}

enum Episode {
  NEWHOPE
  EMPIRE
  JEDI
}

enum Trait @flags {
  BRAVE
  LOYAL
  CLEVER
  STUBBORN
}

enum LengthUnit {
  METER
  FOOT
}

interface Character {
  id: ID!
  name: String!
  friends: [Character!]!
  appearsIn: [Episode!]!
  traits: Trait!
}

type Human implements Character {
  id: ID!
  name: String!
  friends: [Character!]!
  appearsIn: [Episode!]!
  traits: Trait!
  homePlanet: String
  height(unit: LengthUnit = METER): Float
}

type Droid implements Character {
  id: ID!
  name: String!
  friends: [Character!]!
  appearsIn: [Episode!]!
  traits: Trait!
  primaryFunction: String
}

union SearchResult = Human | Droid

type Review {
  episode: Episode!
  stars: Int!
  commentary: String
}

input ReviewInput {
  stars: Int!
  commentary: String
}

type Query {
  hero(episode: Episode): Character
  character(id: ID!): Character
  human(id: ID!): Human
  droid(id: ID!): Droid
  search(text: String!): [SearchResult!]!
  withTraits(traits: [Trait!]!): [Character!]!
  reviews(episode: Episode!): [Review!]!
}

type Mutation {
  createReview(episode: Episode!, review: ReviewInput!): Review!
}
`

const (
	Brave uint64 = 1 << iota
	Loyal
	Clever
	Stubborn
)

type Human struct {
	ID         string
	Name       string
	FriendIDs  []string
	AppearsIn  []string
	Traits     uint64
	HomePlanet string
	Height     float64
}

type Droid struct {
	ID              string
	Name            string
	FriendIDs       []string
	AppearsIn       []string
	Traits          uint64
	PrimaryFunction string
}

type Review struct {
	Episode    string
	Stars      int
	Commentary string
}

// Store holds the demo data. Reviews are the only mutable part.
type Store struct {
	characters map[string]any
	order      []string

	mu      sync.RWMutex
	reviews map[string][]Review
}

// NewStore returns a store seeded with the trilogy cast.
func NewStore() *Store {
	s := &Store{characters: map[string]any{}, reviews: map[string][]Review{}}
	for _, c := range []any{
		&Human{ID: "1000", Name: "Luke Skywalker", FriendIDs: []string{"1002", "1003", "2000", "2001"}, AppearsIn: []string{"NEWHOPE", "EMPIRE", "JEDI"}, Traits: Brave | Loyal, HomePlanet: "Tatooine", Height: 1.72},
		&Human{ID: "1001", Name: "Darth Vader", FriendIDs: []string{"1004"}, AppearsIn: []string{"NEWHOPE", "EMPIRE", "JEDI"}, Traits: Stubborn, HomePlanet: "Tatooine", Height: 2.02},
		&Human{ID: "1002", Name: "Han Solo", FriendIDs: []string{"1000", "1003", "2001"}, AppearsIn: []string{"NEWHOPE", "EMPIRE", "JEDI"}, Traits: Brave | Stubborn, Height: 1.8},
		&Human{ID: "1003", Name: "Leia Organa", FriendIDs: []string{"1000", "1002", "2000", "2001"}, AppearsIn: []string{"NEWHOPE", "EMPIRE", "JEDI"}, Traits: Brave | Loyal | Clever, HomePlanet: "Alderaan", Height: 1.5},
		&Human{ID: "1004", Name: "Wilhuff Tarkin", FriendIDs: []string{"1001"}, AppearsIn: []string{"NEWHOPE"}, Traits: Stubborn, Height: 1.8},
		&Droid{ID: "2000", Name: "C-3PO", FriendIDs: []string{"1000", "1002", "1003", "2001"}, AppearsIn: []string{"NEWHOPE", "EMPIRE", "JEDI"}, Traits: Loyal, PrimaryFunction: "Protocol"},
		&Droid{ID: "2001", Name: "R2-D2", FriendIDs: []string{"1000", "1002", "1003"}, AppearsIn: []string{"NEWHOPE", "EMPIRE", "JEDI"}, Traits: Brave | Loyal | Clever, PrimaryFunction: "Astromech"},
	} {
		id := idOf(c)
		s.characters[id] = c
		s.order = append(s.order, id)
	}
	return s
}

// Character returns the human or droid with the given ID, or nil.
func (s *Store) Character(id string) any { return s.characters[id] }

// Characters returns all characters in seeding order.
func (s *Store) Characters() []any {
	out := make([]any, len(s.order))
	for i, id := range s.order {
		out[i] = s.characters[id]
	}
	return out
}

func (s *Store) AddReview(r Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[r.Episode] = append(s.reviews[r.Episode], r)
}

func (s *Store) Reviews(episode string) []Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Review(nil), s.reviews[episode]...)
}

func idOf(c any) string {
	switch c := c.(type) {
	case *Human:
		return c.ID
	case *Droid:
		return c.ID
	}
	return ""
}

func nameOf(c any) string {
	switch c := c.(type) {
	case *Human:
		return c.Name
	case *Droid:
		return c.Name
	}
	return ""
}

func friendsOf(c any) []string {
	switch c := c.(type) {
	case *Human:
		return c.FriendIDs
	case *Droid:
		return c.FriendIDs
	}
	return nil
}

func traitsOf(c any) uint64 {
	switch c := c.(type) {
	case *Human:
		return c.Traits
	case *Droid:
		return c.Traits
	}
	return 0
}

// reviewSession is created once per request task. It snapshots the reviews
// it reads so one request sees a stable list.
type reviewSession struct {
	store    *Store
	snapshot map[string][]Review
}

func (r *reviewSession) BeginRequest(context.Context) error {
	r.snapshot = map[string][]Review{}
	return nil
}

func (r *reviewSession) reviews(episode string) []Review {
	if cached, ok := r.snapshot[episode]; ok {
		return cached
	}
	list := r.store.Reviews(episode)
	r.snapshot[episode] = list
	return list
}

// NewSchema builds the demo schema over store with introspection installed.
func NewSchema(store *Store) (*schema.Schema, error) {
	s, err := schema.BuildFromSDL(SDL)
	if err != nil {
		return nil, fmt.Errorf("failed to build demo schema: %w", err)
	}
	s.BindHostType(&Human{}, "Human").BindHostType(&Droid{}, "Droid")

	sessions := &schema.ResolverClass{
		Name: "ReviewSession",
		New: func(context.Context) (any, error) {
			return &reviewSession{store: store}, nil
		},
	}

	friends := func(p schema.BatchParams) ([]any, error) {
		out := make([]any, len(p.Sources))
		for i, src := range p.Sources {
			ids := friendsOf(src)
			list := make([]any, 0, len(ids))
			for _, id := range ids {
				if c := store.Character(id); c != nil {
					list = append(list, c)
				}
			}
			out[i] = list
		}
		return out, nil
	}
	traits := func(source any) (any, error) { return traitsOf(source), nil }

	binds := []error{
		s.BindEnumValues("Trait", map[string]any{"BRAVE": Brave, "LOYAL": Loyal, "CLEVER": Clever, "STUBBORN": Stubborn}),

		s.BindFunc("Query", "hero", func(p schema.ResolveParams) (any, error) {
			if ep, _ := p.Arg("episode").(string); ep == "EMPIRE" {
				return store.Character("1000"), nil
			}
			return store.Character("2001"), nil
		}),
		s.BindFunc("Query", "character", func(p schema.ResolveParams) (any, error) {
			id := p.Arg("id").(string)
			return schema.Go(func() (any, error) { return store.Character(id), nil }), nil
		}),
		s.BindFunc("Query", "human", func(p schema.ResolveParams) (any, error) {
			h, _ := store.Character(p.Arg("id").(string)).(*Human)
			if h == nil {
				return nil, nil
			}
			return h, nil
		}),
		s.BindFunc("Query", "droid", func(p schema.ResolveParams) (any, error) {
			d, _ := store.Character(p.Arg("id").(string)).(*Droid)
			if d == nil {
				return nil, nil
			}
			return d, nil
		}),
		s.BindFunc("Query", "search", func(p schema.ResolveParams) (any, error) {
			text := strings.ToLower(p.Arg("text").(string))
			out := []any{}
			for _, c := range store.Characters() {
				if strings.Contains(strings.ToLower(nameOf(c)), text) {
					out = append(out, c)
				}
			}
			return out, nil
		}),
		s.BindFunc("Query", "withTraits", func(p schema.ResolveParams) (any, error) {
			want, _ := p.Arg("traits").(uint64)
			out := []any{}
			for _, c := range store.Characters() {
				if traitsOf(c)&want == want {
					out = append(out, c)
				}
			}
			return out, nil
		}),
		s.BindMethod("Query", "reviews", sessions, func(p schema.ResolveParams) (any, error) {
			return p.Instance.(*reviewSession).reviews(p.Arg("episode").(string)), nil
		}),
		s.BindFunc("Mutation", "createReview", func(p schema.ResolveParams) (any, error) {
			input := p.Arg("review").(map[string]any)
			r := Review{Episode: p.Arg("episode").(string), Stars: input["stars"].(int)}
			if c, ok := input["commentary"].(string); ok {
				r.Commentary = c
			}
			if r.Stars < 0 || r.Stars > 5 {
				return nil, fmt.Errorf("stars must be between 0 and 5, got %d", r.Stars)
			}
			store.AddReview(r)
			return r, nil
		}),

		s.BindBatch("Human", "friends", friends),
		s.BindBatch("Droid", "friends", friends),
		s.BindAccessor("Human", "traits", traits),
		s.BindAccessor("Droid", "traits", traits),
		s.BindFunc("Human", "height", func(p schema.ResolveParams) (any, error) {
			h := p.Source.(*Human)
			if unit, _ := p.Arg("unit").(string); unit == "FOOT" {
				return h.Height * 3.28084, nil
			}
			return h.Height, nil
		}),
	}
	for _, err := range binds {
		if err != nil {
			return nil, fmt.Errorf("failed to bind demo resolvers: %w", err)
		}
	}
	if err := introspection.Install(s); err != nil {
		return nil, err
	}
	return s, nil
}
