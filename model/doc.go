// Package model provides invoker helpers for driving dispatches against
// concrete providers. The dispatcher itself only knows the opaque
// core.Invoker contract; subpackages (openai, anthropic) adapt vendor SDKs
// into that contract, and MockInvoker offers a deterministic in-memory
// stand-in for tests and examples.
package model
