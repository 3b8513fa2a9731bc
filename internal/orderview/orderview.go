// Package orderview arma la vista de una orden para el dashboard: nombres en
// lugar de referencias, subtotales por línea, estado y duración de entrega.
package orderview

import (
	"time"

	"delivery-dashboard/internal/model"
	"delivery-dashboard/internal/status"

	"github.com/shopspring/decimal"
)

// Valores mostrados cuando una referencia no se pudo resolver (Unknown) o se
// resolvió a un documento sin nombre (Unnamed).
const (
	UnknownUser           = "Unknown User"
	UnnamedUser           = "Unnamed User"
	UnknownDeliveryPerson = "Unknown Delivery Man"
	UnknownProduct        = "Unknown Product"
	UnnamedProduct        = "Unnamed Product"
	UnknownAddress        = "Unknown Address"
	UnknownTitle          = "Unknown Title"
)

// Resolved contiene los documentos referenciados por una orden. Un puntero
// nil o un producto ausente del mapa significa "no resuelto". Products se
// indexa por Ref.Path().
type Resolved struct {
	Customer       *model.Customer
	DeliveryPerson *model.DeliveryPerson
	Products       map[string]model.Product
}

type LineView struct {
	ProductID   string          `json:"productId,omitempty"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type AddressView struct {
	Text     string         `json:"address"`
	Title    string         `json:"title"`
	Location model.GeoPoint `json:"location"`
}

type PersonView struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
	Resolved bool   `json:"resolved"`
}

type OrderView struct {
	ID                string           `json:"id"`
	Customer          PersonView       `json:"customer"`
	DeliveryPerson    PersonView       `json:"deliveryPerson"`
	Address           AddressView      `json:"address"`
	Lines             []LineView       `json:"lines"`
	TotalItemCount    int              `json:"totalItemCount"`
	TotalAmount       decimal.Decimal  `json:"totalAmount"`
	LineItemsTotal    decimal.Decimal  `json:"lineItemsTotal"`
	TotalMismatch     bool             `json:"totalMismatch"`
	PlacedAt          *time.Time       `json:"placedAt"`
	ShippingStartedAt *time.Time       `json:"shippingStartedAt"`
	FinishedAt        *time.Time       `json:"finishedAt"`
	Status            status.Status    `json:"status"`
	DeliveryDuration  *status.Duration `json:"deliveryDuration,omitempty"`
}

// Build es puro: no consulta el store y no modifica la orden. TotalAmount es
// el valor guardado; la suma de las líneas se expone aparte.
func Build(now time.Time, o model.Order, in Resolved) OrderView {
	v := OrderView{
		ID:                o.ID,
		Customer:          customerView(in.Customer),
		DeliveryPerson:    deliveryPersonView(in.DeliveryPerson),
		Address:           addressView(o.Address),
		Lines:             make([]LineView, 0, len(o.Items)),
		TotalAmount:       decimal.NewFromFloat(o.TotalAmount),
		LineItemsTotal:    decimal.Zero,
		PlacedAt:          o.PlacedAt.Ptr(),
		ShippingStartedAt: o.ShippingStartedAt.Ptr(),
		FinishedAt:        o.FinishedAt.Ptr(),
		Status:            status.Evaluate(now, o.PlacedAt, o.ShippingStartedAt, o.FinishedAt),
	}

	for _, item := range o.Items {
		line := lineView(item, in.Products)
		v.Lines = append(v.Lines, line)
		v.TotalItemCount += item.Quantity
		v.LineItemsTotal = v.LineItemsTotal.Add(line.Subtotal)
	}
	v.TotalMismatch = !v.LineItemsTotal.Round(2).Equal(v.TotalAmount.Round(2))

	if d, ok := status.DeliveryDurationOf(o.ShippingStartedAt, o.FinishedAt); ok {
		v.DeliveryDuration = &d
	}
	return v
}

func lineView(item model.LineItem, products map[string]model.Product) LineView {
	unit := decimal.NewFromFloat(item.Price)
	line := LineView{
		ProductID:   item.Product.ID,
		ProductName: UnknownProduct,
		Quantity:    item.Quantity,
		UnitPrice:   unit,
		Subtotal:    unit.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}
	if p, ok := products[item.Product.Path()]; ok && item.Product.Valid() {
		line.ProductName = p.Name
		if line.ProductName == "" {
			line.ProductName = UnnamedProduct
		}
	}
	return line
}

func customerView(c *model.Customer) PersonView {
	if c == nil {
		return PersonView{Name: UnknownUser}
	}
	v := personView(c.Person)
	if v.Name == "" {
		v.Name = UnnamedUser
	}
	return v
}

func deliveryPersonView(d *model.DeliveryPerson) PersonView {
	if d == nil {
		return PersonView{Name: UnknownDeliveryPerson}
	}
	v := personView(d.Person)
	if v.Name == "" {
		v.Name = UnknownDeliveryPerson
	}
	return v
}

func personView(p model.Person) PersonView {
	return PersonView{
		ID:       p.ID,
		Name:     p.FullName(),
		Email:    p.Email,
		Phone:    p.Phone,
		PhotoURL: p.PhotoURL,
		Resolved: true,
	}
}

func addressView(a model.Address) AddressView {
	v := AddressView{Text: a.Text, Title: a.Title, Location: a.Location}
	if v.Text == "" {
		v.Text = UnknownAddress
	}
	if v.Title == "" {
		v.Title = UnknownTitle
	}
	return v
}
