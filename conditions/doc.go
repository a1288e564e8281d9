/*
Package conditions implements the PREIMAGE-SHA-256 type of crypto-conditions
(draft-thomas-crypto-conditions).

A fulfillment reveals a preimage, the matching condition publishes the
SHA-256 fingerprint of that preimage together with its cost, the preimage
length. Both are DER encoded:

  Fulfillment ::= [0] { preimage [0] OCTET STRING }
  Condition   ::= [0] { fingerprint [0] OCTET STRING, cost [1] INTEGER }

Only the preimage type is supported. Any other condition type is rejected
with ErrUnsupported.
*/
package conditions
