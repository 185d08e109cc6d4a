package llmclient

import "context"

// Fake is an in-process Provider for exercising the Review Engine without
// a real model backend.
type Fake struct {
	Review string
	Err    error
	Name   string
}

func NewFake(review string) *Fake {
	return &Fake{Review: review, Name: "fake"}
}

func (f *Fake) ReviewDiff(_ context.Context, _, _ string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return f.Review, nil
}

func (f *Fake) Probe(_ context.Context) (bool, string) {
	return f.Err == nil, f.Name
}
