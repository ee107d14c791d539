// Package llm provides the language-model backed want/need judge.
// It supports Anthropic, Gemini and OpenAI providers behind one Client
// interface, with response caching and client-side rate limiting.
package llm
