package orders

import "errors"

type OrderID string

type Order struct {
	id    OrderID
	lines []OrderLine
}

type OrderLine struct {
	sku      string
	quantity int
}

type OrderRepository interface {
	Save(o *Order) error
	ByID(id OrderID) (*Order, error)
}

func NewOrder(id OrderID) (*Order, error) {
	if id == "" {
		return nil, errors.New("order id required")
	}
	return &Order{id: id}, nil
}

func (o *Order) AddLine(line OrderLine) {
	o.lines = append(o.lines, line)
}

func (o *Order) Equals(other *Order) bool {
	return o.id == other.id
}
