package socket

import (
	"netstack/internal/contract"
	"netstack/internal/nerr"
)

// nextShutdownMode validates a shutdown-mode transition against the legal
// table: None->Rd, None->Wr, None->RdWr, Rd->RdWr, Wr->RdWr. From Rd or Wr,
// a request for the other half or for RdWr moves to RdWr; repeating the half
// already shut, or any request once in RdWr, is invalid-op.
func nextShutdownMode(cur contract.ShutdownMode, how contract.ShutdownMode) (contract.ShutdownMode, error) {
	switch cur {
	case contract.ShutNone:
		switch how {
		case contract.ShutRd, contract.ShutWr, contract.ShutRdWr:
			return how, nil
		}
	case contract.ShutRd:
		if how == contract.ShutWr || how == contract.ShutRdWr {
			return contract.ShutRdWr, nil
		}
	case contract.ShutWr:
		if how == contract.ShutRd || how == contract.ShutRdWr {
			return contract.ShutRdWr, nil
		}
	}
	return cur, nerr.InvalidOp
}
