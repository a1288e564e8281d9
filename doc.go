/*

Package quickhold defines the types shared by the ledger, its client and the
command line escrow demo: addresses and the permissions they are derived
from, and UNIX time used for hold expiration.

The ledger itself lives in the ledger package, the crypto-condition codec in
the conditions package and the interactive escrow flow in the session
package.

*/

package quickhold
