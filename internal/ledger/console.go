package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by printing settled trades, for
// development runs without a database.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a console ledger.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-ledger-initialized")
	return &ConsoleStorage{logger: logger}
}

// StoreTrade prints a settled trade.
func (c *ConsoleStorage) StoreTrade(ctx context.Context, trade *TradeRecord) error {
	fmt.Println("────────────────────────────────────────────────────────")
	fmt.Println("TRADE SETTLED")
	fmt.Printf("  Auction:  %s\n", trade.AuctionID)
	fmt.Printf("  Option:   %s\n", trade.OptionID)
	fmt.Printf("  Seller:   %s\n", trade.SellerID)
	fmt.Printf("  Buyer:    %s\n", trade.BuyerID)
	fmt.Printf("  Premium:  %.2f\n", trade.Premium)
	fmt.Printf("  Settled:  %s\n", trade.SettledAt.Format("2006-01-02 15:04:05.000"))
	fmt.Println("────────────────────────────────────────────────────────")
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-ledger")
	return nil
}
