// Package llm wraps the hosted text-generation service behind a narrow
// contract: send a prompt, get back a JSON object. The service itself is a
// black box; this package owns transport, throttling, retry, and strict
// decoding of its answers.
package llm
