package streamflow

import solanago "github.com/gagliardetto/solana-go"

// ProgramID is the Streamflow timelock program address.
var ProgramID = solanago.MustPublicKeyFromBase58("strmRqUCoQUgGUan5YhzUZa6KqdzwX5L6FpUxfmKg5m")
