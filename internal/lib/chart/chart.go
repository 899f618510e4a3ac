// Package chart строит PNG-график истории цен товара.
package chart

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/S1l3ntium/yandex-price-bot/internal/models"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// ErrNotEnoughPoints возвращается, когда в истории меньше двух точек.
var ErrNotEnoughPoints = errors.New("not enough history points for a chart")

// Render строит график цены по точкам истории, отсортированным по времени.
func Render(productName string, points []models.PricePoint) ([]byte, error) {
	const op = "chart.Render"

	if len(points) < 2 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotEnoughPoints)
	}

	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		xs = append(xs, gochart.TimeToFloat64(p.Timestamp))
		ys = append(ys, float64(p.Price))
	}

	graph := gochart.Chart{
		Title: fmt.Sprintf("Изменение цены: %s", productName),
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("02.01 15:04"),
		},
		YAxis: gochart.YAxis{
			Name: "Цена (₽)",
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return buf.Bytes(), nil
}
