// Package llmfactory provides configuration and a factory for chat model instantiation,
// supporting the Ollama, OpenAI, Anthropic, GoogleAI and Bedrock providers.
package llmfactory
