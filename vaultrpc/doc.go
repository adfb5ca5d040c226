// Package vaultrpc exposes a hub and its funds over gRPC.
//
// The service uses google.protobuf.Struct for every request and reply, so it
// needs no generated code. Mutating calls travel in a signed envelope:
//
//	{args, nonce, scheme, public_key, signature}
//
// The signature covers CallDigest(method, args, nonce). The server derives the
// caller address from the public key and accepts each caller's nonces only in
// strictly increasing order. Protocol errors cross the wire with their Kind
// intact.
package vaultrpc
