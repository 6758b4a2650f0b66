package bridge

import (
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DepositInitiated is emitted when L1 funds are escrowed for an L2 mint.
type DepositInitiated struct {
	Token  common.Address
	From   common.Address
	Amount *big.Int
}

func (DepositInitiated) EventName() string { return "DepositInitiated" }

func (e DepositInitiated) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("token", e.Token.Hex()),
		slog.String("from", e.From.Hex()),
		slog.String("amount", e.Amount.String()),
	}
}

// WithdrawalFinalized is emitted when escrowed L1 funds are released.
type WithdrawalFinalized struct {
	Token  common.Address
	To     common.Address
	Amount *big.Int
}

func (WithdrawalFinalized) EventName() string { return "WithdrawalFinalized" }

func (e WithdrawalFinalized) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("token", e.Token.Hex()),
		slog.String("to", e.To.Hex()),
		slog.String("amount", e.Amount.String()),
	}
}
