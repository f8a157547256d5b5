package position

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
)

// TradeRecord is the csv representation of a trade.
type TradeRecord struct {
	ID         string `csv:"id"`
	Market     string `csv:"market"`
	Timeframes string `csv:"timeframes"`
	EntryType  string `csv:"entry_type"`
	SweepDate  string `csv:"sweep_date"`
	SweepPrice string `csv:"sweep_price"`
	BOSPrice   string `csv:"bos_price"`
	EntryDate  string `csv:"entry_date"`
	EntryPrice string `csv:"entry_price"`
	TakeProfit string `csv:"take_profit"`
	StopLoss   string `csv:"stop_loss"`
	Result     string `csv:"result"`
	ResultDate string `csv:"result_date"`
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// ToRecord converts the trade to its csv representation.
func (t *Trade) ToRecord() TradeRecord {
	return TradeRecord{
		ID:         t.ID,
		Market:     t.Market,
		Timeframes: t.Timeframes.String(),
		EntryType:  t.Direction.String(),
		SweepDate:  t.SweepDate.Format(time.RFC3339),
		SweepPrice: formatFloat(t.SweepPrice),
		BOSPrice:   formatFloat(t.BOSPrice),
		EntryDate:  t.EntryDate.Format(time.RFC3339),
		EntryPrice: formatFloat(t.EntryPrice),
		TakeProfit: formatFloat(t.TakeProfit),
		StopLoss:   formatFloat(t.StopLoss),
		Result:     t.Result.String(),
		ResultDate: t.ResultDate.Format(time.RFC3339),
	}
}

// WriteCSV writes the provided trades as csv to the provided writer.
func WriteCSV(w io.Writer, trades []*Trade) error {
	records := make([]TradeRecord, 0, len(trades))
	for idx := range trades {
		records = append(records, trades[idx].ToRecord())
	}

	err := gocsv.Marshal(&records, w)
	if err != nil {
		return fmt.Errorf("marshalling trade records: %w", err)
	}

	return nil
}
