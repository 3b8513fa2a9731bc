// models.go
package model

import "strings"

// Colecciones del document store
const (
	CollectionOrders     = "Commande"
	CollectionUsers      = "users"
	CollectionProducts   = "Product"
	CollectionCategories = "category"
	CollectionTypes      = "type"
	CollectionPromotions = "Promotion"
	CollectionZones      = "Zone"
	CollectionMarket     = "market"
)

// Roles guardados en users.role
const (
	RoleClient      = "Client"
	RoleDeliveryMan = "Delivery_Man"
)

type Order struct {
	ID                string     `bson:"_id,omitempty" json:"id"`
	Customer          Ref        `bson:"user" json:"user"`
	DeliveryPerson    Ref        `bson:"DelivaryMan" json:"deliveryMan"`
	Items             []LineItem `bson:"Products" json:"products"`
	Address           Address    `bson:"addresse" json:"address"`
	PlacedAt          Timestamp  `bson:"DatePAssCommande" json:"placedAt"`
	ShippingStartedAt Timestamp  `bson:"DateShippingStart" json:"shippingStartedAt"`
	FinishedAt        Timestamp  `bson:"DateFinish" json:"finishedAt"`
	TotalAmount       float64    `bson:"TotalAmount" json:"totalAmount"` // autoritativo, no se recalcula
}

func (o Order) Ref() Ref { return NewRef(CollectionOrders, o.ID) }

type LineItem struct {
	Product  Ref     `bson:"Product" json:"product"`
	Quantity int     `bson:"Quantity" json:"quantity"`
	Price    float64 `bson:"Price" json:"price"`
}

type Address struct {
	Text     string   `bson:"address" json:"address"`
	Title    string   `bson:"title" json:"title"`
	Location GeoPoint `bson:"location" json:"location"`
}

type GeoPoint struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Person agrupa los campos comunes de un documento de users.
type Person struct {
	ID          string `bson:"_id,omitempty" json:"id"`
	Role        string `bson:"role" json:"role"`
	FirstName   string `bson:"firstName" json:"firstName"`
	SecondName  string `bson:"secondName" json:"secondName"`
	DisplayName string `bson:"display_name" json:"displayName"`
	Email       string `bson:"email" json:"email"`
	Phone       string `bson:"phone_number" json:"phone"`
	PhotoURL    string `bson:"photo_url" json:"photoUrl"`
}

// FullName devuelve "firstName secondName", o display_name si no hay nombre.
// Vacío si el documento no tiene ninguno.
func (p Person) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.SecondName))
	if name != "" {
		return name
	}
	return strings.TrimSpace(p.DisplayName)
}

func (p Person) Ref() Ref { return NewRef(CollectionUsers, p.ID) }

type Customer struct {
	Person `bson:",inline"`
}

type DeliveryPerson struct {
	Person        `bson:",inline"`
	ShippingScore *float64  `bson:"ShippingScore,omitempty" json:"shippingScore,omitempty"`
	Location      *GeoPoint `bson:"location,omitempty" json:"location,omitempty"`
}

// Available: un repartidor sin carga tiene ShippingScore == 0.
func (d DeliveryPerson) Available() bool {
	return d.ShippingScore != nil && *d.ShippingScore == 0
}

type Product struct {
	ID       string  `bson:"_id,omitempty" json:"id"`
	Name     string  `bson:"name" json:"name"`
	Category Ref     `bson:"category" json:"category"`
	Type     Ref     `bson:"type" json:"type"`
	Price    float64 `bson:"price" json:"price"`
	Status   string  `bson:"status" json:"status"`
}

type Category struct {
	ID         string `bson:"_id,omitempty" json:"id"`
	Name       string `bson:"name" json:"name"`
	PictureURL string `bson:"pictureUrl" json:"pictureUrl"`
	Types      []Ref  `bson:"types" json:"types"`
}

type Type struct {
	ID   string `bson:"_id,omitempty" json:"id"`
	Name string `bson:"name" json:"name"`
}

type Promotion struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Code        string    `bson:"code" json:"code"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	DateStart   Timestamp `bson:"dateStart" json:"dateStart"`
	DateEnd     Timestamp `bson:"dateEnd" json:"dateEnd"`
	Percentage  float64   `bson:"percentage" json:"percentage"`
	MaxNumber   int       `bson:"maxNumber" json:"maxNumber"`
	Image       string    `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt   Timestamp `bson:"creationDate" json:"createdAt"`
	CreatedBy   string    `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
}

type Zone struct {
	ID                 string   `bson:"_id,omitempty" json:"id"`
	Name               string   `bson:"name" json:"name"`
	ZIPCode            string   `bson:"ZIPCode" json:"zipCode"`
	MinimumOrderAmount float64  `bson:"MinimumOrderAmount" json:"minimumOrderAmount"`
	IsOpen             bool     `bson:"isOpen" json:"isOpen"`
	Area               float64  `bson:"area" json:"area"`
	Centroid           GeoPoint `bson:"GeoPoint" json:"centroid"`
}

type Market struct {
	ID           string  `bson:"_id,omitempty" json:"id"`
	DeliveryFees float64 `bson:"delivaryfees" json:"deliveryFees"`
	IsOpen       bool    `bson:"isOpen" json:"isOpen"`
}
