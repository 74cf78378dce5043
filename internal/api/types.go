package api

import "time"

const RoleAdmin = "admin"

// User is the identity returned by /auth/login and /auth/me.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	SalePrice   float64 `json:"salePrice"`
	IsOnSale    bool    `json:"isOnSale"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Stock       int     `json:"stock"`
	InStock     bool    `json:"inStock"`
}

// UnitPrice is what the backend will charge per unit.
func (p Product) UnitPrice() float64 {
	if p.IsOnSale {
		return p.SalePrice
	}
	return p.Price
}

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderRequest struct {
	UserID          string      `json:"userId"`
	Items           []OrderItem `json:"items"`
	RecipientName   string      `json:"recipientName"`
	RecipientPhone  string      `json:"recipientPhone"`
	DeliveryAddress string      `json:"deliveryAddress"`
	PaymentMethod   string      `json:"paymentMethod"`
}

type OrderConfirmation struct {
	OrderID string  `json:"orderId"`
	Total   float64 `json:"total"`
	Message string  `json:"message"`
}

type OrderLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type Order struct {
	ID              string      `json:"id"`
	Items           []OrderLine `json:"items"`
	TotalPrice      float64     `json:"totalPrice"`
	RecipientName   string      `json:"recipientName"`
	RecipientPhone  string      `json:"recipientPhone"`
	DeliveryAddress string      `json:"deliveryAddress"`
	PaymentMethod   string      `json:"paymentMethod"`
	Status          string      `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
}

type EventRegistration struct {
	ID       string    `json:"id"`
	EventID  string    `json:"eventId"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
	Tickets  int       `json:"tickets"`
}

type WorkshopRegistration struct {
	ID         string    `json:"id"`
	WorkshopID string    `json:"workshopId"`
	Title      string    `json:"title"`
	Instructor string    `json:"instructor"`
	Date       time.Time `json:"date"`
	Seats      int       `json:"seats"`
}

type Subscription struct {
	ID        string    `json:"id"`
	PlanName  string    `json:"planName"`
	Frequency string    `json:"frequency"`
	Price     float64   `json:"price"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"startDate"`
}

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type ReviewPage struct {
	Data       []Review   `json:"data"`
	Pagination Pagination `json:"pagination"`
}
