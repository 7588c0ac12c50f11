package redisx

import "fmt"

const (
	// Stock level per product: stock:{code} -> integer quantity
	KeyStock = "stock:%s"

	// Set of every seeded product code, used for snapshots.
	KeyStockCodes = "stock:codes"
)

func StockKey(code string) string { return fmt.Sprintf(KeyStock, code) }

func StockKeys(codes []string) []string {
	keys := make([]string, len(codes))
	for i, c := range codes {
		keys[i] = StockKey(c)
	}
	return keys
}
