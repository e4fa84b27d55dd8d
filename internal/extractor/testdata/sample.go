package sample

import (
	"context"
	"fmt"

	base "zoo/kingdom"
	_ "embed"
)

// Base is a base struct.
type Base struct {
	ID int
}

// Pet is something that lives with people.
//
// @Domestic
// @zoo.tags.Friendly
type Pet struct {
	Base
	*kingdom.Creature
	Name, Nickname string `json:"name"`
}

// Speaker speaks.
type Speaker interface {
	fmt.Stringer
	base.Animal
	Speak(ctx context.Context, words ...string) (n int, err error)
	Close()
}

// Label is an alias.
type Label = string

type (
	// Count is grouped.
	// @Numeric
	Count int
)

var _ Speaker = (*Pet)(nil)

var notAnAssertion = "hello"

func (p *Pet) Speak(ctx context.Context, words ...string) (int, error) {
	return len(words), nil
}

func (p Pet) String() string { return p.Name }

func (Pet) Close() {}

func Helper(a int) bool { return a > 0 }
