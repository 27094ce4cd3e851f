// Package model defines the provider-agnostic contract for text-generation
// backends used by the policy step and the filing QA engine.
//
// Providers (OpenAI, Anthropic) live in sub-packages and translate the
// core.Turn sum type into their own message formats. ScriptedModel is a
// deterministic in-memory implementation for tests and offline examples.
package model
