// Package embeddings provides embedding generation via multiple providers.
//
// Supports TEI (external service), OpenAI (API), and FastEmbed (local ONNX,
// CGO builds only) providers. Factory pattern enables provider selection at
// runtime. The same provider, identified by ModelID, must be used at both
// index-build and query time; the build manifest records the identifier so
// a mismatched index is rejected at load.
package embeddings
