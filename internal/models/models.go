package models

import "time"

// Product описывает отслеживаемый товар. LastPrice обновляется только циклом проверки цен.
type Product struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	URL       string    `json:"url" db:"url"`
	Name      string    `json:"name" db:"name"`
	LastPrice int       `json:"last_price" db:"last_price"`
	Threshold int       `json:"threshold" db:"threshold"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PricePoint описывает одну точку истории цен товара.
type PricePoint struct {
	Price     int       `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductInfo содержит результат разбора страницы товара.
type ProductInfo struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}
