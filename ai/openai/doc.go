// Package openai implements ai.InferenceService against OpenAI-compatible
// embedding APIs (OpenAI, Ollama, LocalAI, vLLM).
//
// Each model resolved from the registry is served by its own lazily
// created langchaingo embedder; failing calls are retried with
// exponential backoff per the service configuration.
package openai
