// Package model defines the provider-agnostic abstraction agents use to
// talk to language models.
//
// Providers (model/openai, model/anthropic) implement Model so agents and
// the summarizer stay decoupled from vendor SDKs. MockModel serves tests.
package model
