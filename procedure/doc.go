// Package procedure provides composable request pipeline stages.
//
// A [Builder] is an immutable chain of [Middleware]. [Builder.Use] returns a new
// stage of the same family, so a base stage (for example one that enforces
// authentication) can be specialised any number of times without the variants
// affecting each other. [Builder.Handle] terminates the chain with a [Handler].
//
// Stages signal expected rejections with [*Error], whose [Code] lets transport
// adapters map the outcome to a protocol status (see [HTTPStatus]).
//
// # What this package must NOT do
//
//   - Know about permissions, tokens, or storage.
//   - Recover panics raised by handlers or middleware.
package procedure
