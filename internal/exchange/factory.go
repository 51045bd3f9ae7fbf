package exchange

import "fmt"

// New создает шлюз биржи по имени
// Поддерживаются: binance, okx
func New(name string, sandbox bool) (Gateway, error) {
	switch name {
	case VenueBinance:
		return NewBinance(sandbox), nil
	case VenueOKX:
		return NewOKX(sandbox), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", name)
	}
}
