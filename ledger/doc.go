/*
Package ledger implements a small ledger with a native conditional escrow
primitive, the hold.

Accounts hold a balance of the native currency and a sequence. Every
transaction is signed by an account, carries the account's next sequence and
pays a fee. The fee and the sequence are consumed even when the message of
the transaction fails, the message itself is applied atomically.

A hold locks an amount of the owner's balance behind a PREIMAGE-SHA-256
crypto-condition. It is identified by the owner and the sequence of the
transaction that created it. A pending hold is released to its destination
when a matching fulfillment is presented before the hold expires. Once the
block time reaches the cancel-after time, the funds are returned to the
owner, either at the beginning of the next block or by an explicit cancel
when the ledger runs with manual return.

App exposes the ledger as an ABCI application.
*/
package ledger
