// Package llms provides a small, provider-neutral surface for chat models.
//
// Each subpackage wraps one provider SDK and converts the ordered
// system/user/assistant messages into that provider's request shape.
//
// The `llms.go` file contains the Model interface and provider types.
//
// The `options.go` file provides per-call options.
package llms
