package lalamove

// Coordinates are sent as strings, matching the provider's wire format.
type Coordinates struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

type Stop struct {
	Coordinates Coordinates `json:"coordinates"`
	Address     string      `json:"address"`
}

type QuotationRequest struct {
	ServiceType      string `json:"serviceType"`
	Language         string `json:"language"`
	Stops            []Stop `json:"stops"`
	IsRouteOptimized bool   `json:"isRouteOptimized,omitempty"`
}

type PriceBreakdown struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// QuotationStop carries the provider-assigned stop id needed to place an
// order. The first stop is the pickup, the second the dropoff.
type QuotationStop struct {
	StopID      string      `json:"stopId"`
	Coordinates Coordinates `json:"coordinates"`
	Address     string      `json:"address"`
}

type Quotation struct {
	QuotationID    string          `json:"quotationId"`
	ScheduleAt     string          `json:"scheduleAt,omitempty"`
	ServiceType    string          `json:"serviceType"`
	PriceBreakdown PriceBreakdown  `json:"priceBreakdown"`
	Stops          []QuotationStop `json:"stops"`
}

type Sender struct {
	StopID string `json:"stopId"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

type Recipient struct {
	StopID  string `json:"stopId"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Remarks string `json:"remarks,omitempty"`
}

type OrderRequest struct {
	QuotationID  string            `json:"quotationId"`
	Sender       Sender            `json:"sender"`
	Recipients   []Recipient       `json:"recipients"`
	IsPODEnabled bool              `json:"isPODEnabled,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type Order struct {
	OrderID        string         `json:"orderId"`
	Status         string         `json:"status"`
	ShareLink      string         `json:"shareLink"`
	DriverID       string         `json:"driverId,omitempty"`
	PriceBreakdown PriceBreakdown `json:"priceBreakdown"`
}

type DriverLocation struct {
	Location  Coordinates `json:"location"`
	UpdatedAt string      `json:"updatedAt"`
}

// Provider order statuses pushed over the webhook.
const (
	StatusAssigningDriver = "ASSIGNING_DRIVER"
	StatusOnGoing         = "ON_GOING"
	StatusPickedUp        = "PICKED_UP"
	StatusCompleted       = "COMPLETED"
	StatusCanceled        = "CANCELED"
	StatusRejected        = "REJECTED"
	StatusExpired         = "EXPIRED"
)
