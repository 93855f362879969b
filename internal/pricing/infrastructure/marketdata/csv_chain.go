// Package marketdata 期权链快照的加载
package marketdata

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
)

// ExpiryDateLayout expiry_date 列的日期格式
const ExpiryDateLayout = "2006-01-02"

// chainRow CSV 中的一行；expiry（年）与 expiry_date 二选一
type chainRow struct {
	Strike     float64 `csv:"strike"`
	Expiry     float64 `csv:"expiry,omitempty"`
	ExpiryDate string  `csv:"expiry_date,omitempty"`
	Type       string  `csv:"type"`
	Bid        float64 `csv:"bid"`
	Ask        float64 `csv:"ask"`
	IV         float64 `csv:"iv,omitempty"`
}

// CSVChainProvider 从 CSV 文件读取期权链
type CSVChainProvider struct {
	path string
	// now 每次加载时给出换算 expiry_date 的基准时间
	now func() time.Time
}

// NewCSVChainProvider 创建 CSV 期权链来源；now 为 nil 时使用 time.Now
func NewCSVChainProvider(path string, now func() time.Time) *CSVChainProvider {
	if now == nil {
		now = time.Now
	}
	return &CSVChainProvider{path: path, now: now}
}

var _ domain.ChainProvider = (*CSVChainProvider)(nil)

// LoadChain 读取整个文件
func (p *CSVChainProvider) LoadChain(ctx context.Context) ([]domain.ChainQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("open chain snapshot: %w", err)
	}
	defer f.Close()
	return ParseChain(f, p.now())
}

// ParseChain 解析 CSV 期权链
func ParseChain(r io.Reader, asOf time.Time) ([]domain.ChainQuote, error) {
	var rows []chainRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse chain snapshot: %w", err)
	}

	quotes := make([]domain.ChainQuote, 0, len(rows))
	for i, row := range rows {
		// 表头占第 1 行
		line := i + 2
		typ := domain.OptionType(strings.ToUpper(strings.TrimSpace(row.Type)))
		switch typ {
		case "C":
			typ = domain.OptionTypeCall
		case "P":
			typ = domain.OptionTypePut
		case domain.OptionTypeCall, domain.OptionTypePut:
		default:
			return nil, fmt.Errorf("line %d: unknown option type %q", line, row.Type)
		}

		expiry := row.Expiry
		if row.ExpiryDate != "" {
			d, err := time.Parse(ExpiryDateLayout, strings.TrimSpace(row.ExpiryDate))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			expiry = domain.ExpiryFromDate(d, asOf)
		}
		if row.Strike <= 0 || expiry <= 0 {
			return nil, fmt.Errorf("line %d: strike and expiry must be positive", line)
		}
		quotes = append(quotes, domain.ChainQuote{
			Strike:            row.Strike,
			Expiry:            expiry,
			Type:              typ,
			Bid:               row.Bid,
			Ask:               row.Ask,
			ImpliedVolatility: row.IV,
		})
	}
	return quotes, nil
}
