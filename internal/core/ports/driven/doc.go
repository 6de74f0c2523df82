// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Generates vector embeddings (OpenAI, Ollama)
//   - VectorStore: Vector storage and similarity search (Qdrant, memory)
//   - LLMService: Chat completions with token log-probabilities
//   - DocumentStore: Document and chunk metadata persistence (SQLite)
//   - NormaliserRegistry: Extracts per-page text from uploads
//   - ConfigStore: Application configuration
//   - PromptStore: System prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application falls back to a default:
//
//   - TokenCounter: Chunk token estimates. Falls back to a word heuristic.
//   - Metrics: Pipeline observations. Falls back to NopMetrics.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
