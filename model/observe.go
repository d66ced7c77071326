package model

import (
	"context"
)

// Observer receives one notification per completed model request.
type Observer interface {
	ObserveModelRequest(provider, model string, failed bool)
}

type observed struct {
	Model
	obs Observer
}

// WithObserver wraps m so every request outcome is reported to obs.
func WithObserver(m Model, obs Observer) Model {
	if obs == nil {
		return m
	}
	return &observed{Model: m, obs: obs}
}

func (o *observed) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	inRes, inErr := o.Model.Generate(ctx, req)
	outRes := make(chan Response, cap(inRes))
	outErr := make(chan error, 1)
	info := o.Model.Info()

	go func() {
		defer close(outRes)
		defer close(outErr)
		var failed bool
		for inRes != nil || inErr != nil {
			select {
			case r, ok := <-inRes:
				if !ok {
					inRes = nil
					continue
				}
				outRes <- r
			case err, ok := <-inErr:
				if !ok {
					inErr = nil
					continue
				}
				if err != nil {
					failed = true
					outErr <- err
				}
			}
		}
		o.obs.ObserveModelRequest(info.Provider, info.Name, failed)
	}()
	return outRes, outErr
}
