/*
Package session implements the interactive escrow flow. A session creates
two funded wallets, locks an amount from the sender to the receiver behind
a secret phrase and releases it when the phrase is entered again.

A session reads two lines:

	escrow <amount> "<secret phrase>"
	<secret phrase>

If the second line is not the phrase, nothing is submitted and the ledger
returns the funds to the sender once the hold expires.
*/
package session
