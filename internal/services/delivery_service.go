package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"soora-backend/internal/breaker"
	"soora-backend/internal/geocode"
	"soora-backend/internal/logger"
	"soora-backend/internal/models"
	"soora-backend/internal/redis"
	"soora-backend/internal/repository"
	"soora-backend/pkg/lalamove"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Fallback coordinate when geocoding fails: Singapore city center.
const (
	fallbackLat = 1.3521
	fallbackLng = 103.8198

	serviceType = "MOTORCYCLE"
	language    = "en_SG"

	providerCallTimeout = 15 * time.Second
	eventDedupeTTL      = 24 * time.Hour
)

var postalCodeRe = regexp.MustCompile(`^\d{6}$`)

// DeliveryProvider is the slice of the Lalamove client the service needs.
type DeliveryProvider interface {
	GetQuotation(ctx context.Context, req *lalamove.QuotationRequest) (*lalamove.Quotation, error)
	PlaceOrder(ctx context.Context, req *lalamove.OrderRequest) (*lalamove.Order, error)
	GetOrder(ctx context.Context, orderID string) (*lalamove.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetDriverLocation(ctx context.Context, orderID string) (*lalamove.DriverLocation, error)
}

// Geocoder resolves a Singapore street + postal code, nil on failure.
type Geocoder interface {
	Resolve(ctx context.Context, street, postalCode string) *geocode.Result
}

// DeliveryCache is the redis surface used by the delivery flow.
type DeliveryCache interface {
	GetGeocode(ctx context.Context, key string) (*redis.GeocodeEntry, error)
	SetGeocode(ctx context.Context, key string, entry *redis.GeocodeEntry, ttl time.Duration) error
	MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

// StoreConfig is the fixed pickup identity used for every dispatch.
type StoreConfig struct {
	Name    string
	Phone   string
	Address string
	Lat     float64
	Lng     float64
	FlatFee float64
}

// FeeQuote is the result of fee resolution. Fallback marks a flat fee
// produced because the provider was unreachable or returned no price.
type FeeQuote struct {
	Fee         float64 `json:"fee"`
	Currency    string  `json:"currency"`
	Fallback    bool    `json:"fallback"`
	QuotationID string  `json:"quotation_id,omitempty"`
}

// TrackingInfo combines the stored order with the provider's live state.
type TrackingInfo struct {
	OrderID     uint   `json:"order_id"`
	Status      string `json:"status"`
	Provider    string `json:"provider_status"`
	TrackingURL string `json:"tracking_url"`
	DriverName  string `json:"driver_name,omitempty"`
	DriverPhone string `json:"driver_phone,omitempty"`
}

// WebhookEvent is a delivery-status push from the provider. The order id
// appears either directly under data or nested under data.order.
type WebhookEvent struct {
	EventID   string      `json:"eventId"`
	EventType string      `json:"eventType"`
	Data      WebhookData `json:"data"`
}

type WebhookData struct {
	OrderID   string         `json:"orderId"`
	Status    string         `json:"status"`
	ShareLink string         `json:"shareLink"`
	Order     *WebhookOrder  `json:"order"`
	Driver    *WebhookDriver `json:"driver"`
}

type WebhookOrder struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	ShareLink string `json:"shareLink"`
}

type WebhookDriver struct {
	DriverID    string `json:"driverId"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	PlateNumber string `json:"plateNumber"`
}

type DeliveryService interface {
	ResolveFee(ctx context.Context, addressID uint) (*FeeQuote, error)
	ResolveFeeForAddress(ctx context.Context, address *models.Address) *FeeQuote
	Dispatch(ctx context.Context, orderID uint) error
	ApplyWebhook(ctx context.Context, event *WebhookEvent) error
	Track(ctx context.Context, orderID uint) (*TrackingInfo, error)
	DriverLocation(ctx context.Context, orderID uint) (*lalamove.DriverLocation, error)
	CancelDelivery(ctx context.Context, order *models.Order)
}

type deliveryService struct {
	provider    DeliveryProvider
	geocoder    Geocoder
	cache       DeliveryCache
	orderRepo   repository.OrderRepository
	addressRepo repository.AddressRepository
	store       StoreConfig
	breaker     *breaker.Breaker
	geocodeTTL  time.Duration
}

func NewDeliveryService(
	provider DeliveryProvider,
	geocoder Geocoder,
	cache DeliveryCache,
	orderRepo repository.OrderRepository,
	addressRepo repository.AddressRepository,
	store StoreConfig,
	geocodeTTL time.Duration,
) DeliveryService {
	return &deliveryService{
		provider:    provider,
		geocoder:    geocoder,
		cache:       cache,
		orderRepo:   orderRepo,
		addressRepo: addressRepo,
		store:       store,
		breaker:     breaker.New("lalamove", 5, 30*time.Second, logger.L()),
		geocodeTTL:  geocodeTTL,
	}
}

// validateAddress rejects malformed destinations before any provider call.
func validateAddress(address *models.Address) error {
	if !postalCodeRe.MatchString(address.PostalCode) {
		return ErrInvalidPostalCode
	}
	if len(strings.TrimSpace(address.Street)) < 3 {
		return ErrInvalidStreet
	}
	return nil
}

func formatAddress(address *models.Address) string {
	street := address.Street
	if address.Unit != "" {
		street = street + " " + address.Unit
	}
	return fmt.Sprintf("%s, Singapore %s", street, address.PostalCode)
}

// resolveCoordinates returns the destination coordinates and display
// address, geocoding lazily. A geocoder miss degrades to the city-center
// fallback rather than failing. When persist is true, freshly resolved
// coordinates are written back onto the address row.
func (s *deliveryService) resolveCoordinates(ctx context.Context, address *models.Address, persist bool) (float64, float64, string) {
	if address.HasCoordinates() {
		return *address.Latitude, *address.Longitude, formatAddress(address)
	}

	cacheKey := address.Street + "|" + address.PostalCode
	if entry, err := s.cache.GetGeocode(ctx, cacheKey); err == nil && entry != nil {
		if persist {
			s.persistCoordinates(address, entry.Lat, entry.Lng)
		}
		return entry.Lat, entry.Lng, entry.DisplayName
	}

	result := s.geocoder.Resolve(ctx, address.Street, address.PostalCode)
	if result == nil {
		logger.L().Warn("geocoding failed, using fallback coordinate",
			zap.Uint("address_id", address.ID),
			zap.String("postal_code", address.PostalCode),
		)
		return fallbackLat, fallbackLng, formatAddress(address)
	}

	entry := &redis.GeocodeEntry{Lat: result.Lat, Lng: result.Lng, DisplayName: result.DisplayName}
	if err := s.cache.SetGeocode(ctx, cacheKey, entry, s.geocodeTTL); err != nil {
		logger.L().Warn("failed to cache geocode result", zap.Error(err))
	}
	if persist {
		s.persistCoordinates(address, result.Lat, result.Lng)
	}
	return result.Lat, result.Lng, result.DisplayName
}

func (s *deliveryService) persistCoordinates(address *models.Address, lat, lng float64) {
	if err := s.addressRepo.UpdateCoordinates(address.ID, lat, lng); err != nil {
		logger.L().Warn("failed to persist address coordinates",
			zap.Uint("address_id", address.ID), zap.Error(err))
		return
	}
	address.Latitude = &lat
	address.Longitude = &lng
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// quoteRoute asks for a quotation through the circuit breaker, retrying
// once with route optimization disabled before giving up.
func (s *deliveryService) quoteRoute(ctx context.Context, destLat, destLng float64, destAddress string) (*lalamove.Quotation, error) {
	req := &lalamove.QuotationRequest{
		ServiceType: serviceType,
		Language:    language,
		Stops: []lalamove.Stop{
			{
				Coordinates: lalamove.Coordinates{Lat: coord(s.store.Lat), Lng: coord(s.store.Lng)},
				Address:     s.store.Address,
			},
			{
				Coordinates: lalamove.Coordinates{Lat: coord(destLat), Lng: coord(destLng)},
				Address:     destAddress,
			},
		},
		IsRouteOptimized: true,
	}

	quotation, err := s.getQuotation(ctx, req)
	if err == nil {
		return quotation, nil
	}

	logger.L().Warn("quotation failed, retrying with simplified request", zap.Error(err))
	req.IsRouteOptimized = false
	return s.getQuotation(ctx, req)
}

func (s *deliveryService) getQuotation(ctx context.Context, req *lalamove.QuotationRequest) (*lalamove.Quotation, error) {
	var quotation *lalamove.Quotation
	err := s.breaker.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, providerCallTimeout)
		defer cancel()
		var err error
		quotation, err = s.provider.GetQuotation(callCtx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quotation, nil
}

// ResolveFee loads the address and produces a delivery fee for it. Only
// validation problems surface as errors; provider trouble degrades to
// the configured flat fee so checkout is never blocked.
func (s *deliveryService) ResolveFee(ctx context.Context, addressID uint) (*FeeQuote, error) {
	address, err := s.addressRepo.GetByID(addressID)
	if err != nil {
		return nil, err
	}
	if err := validateAddress(address); err != nil {
		return nil, err
	}
	return s.ResolveFeeForAddress(ctx, address), nil
}

// ResolveFeeForAddress computes the fee for an already-validated address.
func (s *deliveryService) ResolveFeeForAddress(ctx context.Context, address *models.Address) *FeeQuote {
	destLat, destLng, destAddress := s.resolveCoordinates(ctx, address, false)

	quotation, err := s.quoteRoute(ctx, destLat, destLng, destAddress)
	if err != nil {
		logger.L().Warn("delivery quotation unavailable, using flat fee",
			zap.Uint("address_id", address.ID),
			zap.Float64("flat_fee", s.store.FlatFee),
			zap.Error(err),
		)
		return &FeeQuote{Fee: s.store.FlatFee, Currency: "SGD", Fallback: true}
	}

	fee, err := strconv.ParseFloat(quotation.PriceBreakdown.Total, 64)
	if err != nil || fee <= 0 {
		logger.L().Warn("quotation missing usable price, using flat fee",
			zap.String("total", quotation.PriceBreakdown.Total),
			zap.String("quotation_id", quotation.QuotationID),
		)
		return &FeeQuote{Fee: s.store.FlatFee, Currency: "SGD", Fallback: true}
	}

	currency := quotation.PriceBreakdown.Currency
	if currency == "" {
		currency = "SGD"
	}

	return &FeeQuote{Fee: fee, Currency: currency, QuotationID: quotation.QuotationID}
}

// Dispatch creates a delivery order for a paid order: quote the route,
// place the provider order against the quotation's stop ids, then record
// the linkage. Either every step succeeds or the order is left exactly
// as it was.
func (s *deliveryService) Dispatch(ctx context.Context, orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order.LalamoveOrderId != "" {
		return ErrAlreadyDispatched
	}

	address := order.Address
	if address == nil {
		address, err = s.addressRepo.GetByID(order.AddressID)
		if err != nil {
			return fmt.Errorf("failed to load address: %w", err)
		}
	}

	destLat, destLng, destAddress := s.resolveCoordinates(ctx, address, true)

	quotation, err := s.quoteRoute(ctx, destLat, destLng, destAddress)
	if err != nil {
		return fmt.Errorf("failed to get quotation for order %d: %w", orderID, err)
	}
	if quotation.QuotationID == "" || len(quotation.Stops) < 2 ||
		quotation.Stops[0].StopID == "" || quotation.Stops[1].StopID == "" {
		logger.L().Error("quotation response incomplete, dispatch aborted",
			zap.Uint("order_id", orderID),
			zap.String("quotation_id", quotation.QuotationID),
			zap.Int("stops", len(quotation.Stops)),
		)
		return ErrIncompleteQuotation
	}

	remarks := order.DeliveryNotes
	if remarks == "" {
		remarks = "Fragile - Alcohol"
	}

	orderReq := &lalamove.OrderRequest{
		QuotationID: quotation.QuotationID,
		Sender: lalamove.Sender{
			StopID: quotation.Stops[0].StopID,
			Name:   s.store.Name,
			Phone:  s.store.Phone,
		},
		Recipients: []lalamove.Recipient{
			{
				StopID:  quotation.Stops[1].StopID,
				Name:    order.CustomerName,
				Phone:   order.CustomerPhone,
				Remarks: remarks,
			},
		},
		Metadata: map[string]string{
			"orderId":     strconv.FormatUint(uint64(order.ID), 10),
			"orderNumber": order.OrderNumber,
		},
	}

	var deliveryOrder *lalamove.Order
	err = s.breaker.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, providerCallTimeout)
		defer cancel()
		var err error
		deliveryOrder, err = s.provider.PlaceOrder(callCtx, orderReq)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create delivery order for order %d: %w", orderID, err)
	}

	providerStatus := deliveryOrder.Status
	if providerStatus == "" {
		providerStatus = lalamove.StatusAssigningDriver
	}

	claimed, err := s.orderRepo.ClaimDispatch(order.ID,
		deliveryOrder.OrderID, providerStatus, deliveryOrder.ShareLink,
		string(models.OrderProcessing))
	if err != nil {
		return fmt.Errorf("failed to persist dispatch for order %d: %w", orderID, err)
	}
	if !claimed {
		// A concurrent dispatch won the row. The provider order created
		// here is now orphaned; cancel it best-effort.
		logger.L().Warn("dispatch race lost, cancelling duplicate provider order",
			zap.Uint("order_id", orderID),
			zap.String("lalamove_order_id", deliveryOrder.OrderID),
		)
		s.cancelProviderOrder(ctx, deliveryOrder.OrderID)
		return ErrAlreadyDispatched
	}

	logger.L().Info("delivery dispatched",
		zap.Uint("order_id", orderID),
		zap.String("order_number", order.OrderNumber),
		zap.String("lalamove_order_id", deliveryOrder.OrderID),
		zap.String("lalamove_status", providerStatus),
	)
	return nil
}

// mapStatus translates the provider's vocabulary into the local order
// status. The second return is false when the signal carries no status
// meaning, in which case only the raw provider string is stored.
func mapStatus(eventType, providerStatus string) (models.OrderStatus, bool) {
	switch eventType {
	case "DRIVER_ASSIGNED":
		return models.OrderProcessing, true
	case "ORDER_COMPLETED":
		return models.OrderDelivered, true
	}
	switch providerStatus {
	case lalamove.StatusAssigningDriver:
		return models.OrderProcessing, true
	case lalamove.StatusOnGoing, lalamove.StatusPickedUp:
		return models.OrderOutForDelivery, true
	case lalamove.StatusCompleted:
		return models.OrderDelivered, true
	case lalamove.StatusCanceled, lalamove.StatusRejected, lalamove.StatusExpired:
		return models.OrderCancelled, true
	}
	return "", false
}

// ApplyWebhook reconciles a provider push against the stored order.
// Unknown orders and duplicate events are dropped silently; the handler
// acks 200 regardless of the outcome here.
func (s *deliveryService) ApplyWebhook(ctx context.Context, event *WebhookEvent) error {
	if event.EventID != "" {
		first, err := s.cache.MarkEventSeen(ctx, event.EventID, eventDedupeTTL)
		if err != nil {
			// Dedupe is best-effort; the rank guard below still protects
			// order state if a duplicate slips through.
			logger.L().Warn("webhook dedupe unavailable", zap.Error(err))
		} else if !first {
			logger.L().Debug("duplicate webhook event skipped",
				zap.String("event_id", event.EventID))
			return nil
		}
	}

	providerOrderID := event.Data.OrderID
	providerStatus := event.Data.Status
	shareLink := event.Data.ShareLink
	if event.Data.Order != nil {
		if providerOrderID == "" {
			providerOrderID = event.Data.Order.OrderID
		}
		if providerStatus == "" {
			providerStatus = event.Data.Order.Status
		}
		if shareLink == "" {
			shareLink = event.Data.Order.ShareLink
		}
	}
	if providerOrderID == "" {
		logger.L().Warn("webhook event missing order id",
			zap.String("event_type", event.EventType))
		return nil
	}

	order, err := s.orderRepo.GetByLalamoveOrderID(providerOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.L().Info("webhook for unknown order discarded",
				zap.String("lalamove_order_id", providerOrderID),
				zap.String("event_type", event.EventType),
			)
			return nil
		}
		return fmt.Errorf("failed to look up order: %w", err)
	}

	fields := map[string]interface{}{}

	// Driver details apply regardless of the status mapping; a driver
	// re-assignment can arrive without any status change.
	if d := event.Data.Driver; d != nil {
		if d.DriverID != "" {
			fields["lalamove_driver_id"] = d.DriverID
		}
		if d.Name != "" {
			fields["lalamove_driver_name"] = d.Name
		}
		if d.Phone != "" {
			fields["lalamove_driver_phone"] = d.Phone
		}
		if d.PlateNumber != "" {
			fields["lalamove_driver_plate"] = d.PlateNumber
		}
	}
	if shareLink != "" {
		fields["lalamove_tracking_url"] = shareLink
	}
	if providerStatus != "" {
		fields["lalamove_status"] = providerStatus
	}

	if mapped, ok := mapStatus(event.EventType, providerStatus); ok {
		current := models.OrderStatus(order.Status)
		if current.CanTransitionTo(mapped) {
			fields["status"] = string(mapped)
			if mapped == models.OrderDelivered {
				fields["delivered_at"] = time.Now()
			}
		} else if mapped != current {
			logger.L().Warn("webhook status downgrade skipped",
				zap.Uint("order_id", order.ID),
				zap.String("current", order.Status),
				zap.String("incoming", string(mapped)),
				zap.String("event_type", event.EventType),
			)
		}
	} else if providerStatus != "" {
		logger.L().Warn("unrecognized provider status stored as-is",
			zap.Uint("order_id", order.ID),
			zap.String("lalamove_status", providerStatus),
		)
	}

	if len(fields) == 0 {
		return nil
	}
	if err := s.orderRepo.UpdateFields(order.ID, fields); err != nil {
		return fmt.Errorf("failed to apply webhook update: %w", err)
	}

	logger.L().Info("webhook applied",
		zap.Uint("order_id", order.ID),
		zap.String("event_type", event.EventType),
		zap.String("lalamove_status", providerStatus),
	)
	return nil
}

// Track fetches the provider's live order state and refreshes the stored
// provider status and share link when newer information is available.
func (s *deliveryService) Track(ctx context.Context, orderID uint) (*TrackingInfo, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.LalamoveOrderId == "" {
		return nil, ErrNoDelivery
	}

	callCtx, cancel := context.WithTimeout(ctx, providerCallTimeout)
	defer cancel()
	providerOrder, err := s.provider.GetOrder(callCtx, order.LalamoveOrderId)
	if err != nil {
		// Fall back to last known state rather than failing the view.
		logger.L().Warn("provider status fetch failed, serving stored state",
			zap.Uint("order_id", orderID), zap.Error(err))
		return trackingFromOrder(order), nil
	}

	fields := map[string]interface{}{}
	if providerOrder.Status != "" && providerOrder.Status != order.LalamoveStatus {
		fields["lalamove_status"] = providerOrder.Status
		order.LalamoveStatus = providerOrder.Status
	}
	if providerOrder.ShareLink != "" && providerOrder.ShareLink != order.LalamoveTrackingUrl {
		fields["lalamove_tracking_url"] = providerOrder.ShareLink
		order.LalamoveTrackingUrl = providerOrder.ShareLink
	}
	if len(fields) > 0 {
		if err := s.orderRepo.UpdateFields(order.ID, fields); err != nil {
			logger.L().Warn("failed to refresh stored delivery state",
				zap.Uint("order_id", orderID), zap.Error(err))
		}
	}

	return trackingFromOrder(order), nil
}

func trackingFromOrder(order *models.Order) *TrackingInfo {
	return &TrackingInfo{
		OrderID:     order.ID,
		Status:      order.Status,
		Provider:    order.LalamoveStatus,
		TrackingURL: order.LalamoveTrackingUrl,
		DriverName:  order.LalamoveDriverName,
		DriverPhone: order.LalamoveDriverPhone,
	}
}

// DriverLocation returns the assigned driver's current position.
func (s *deliveryService) DriverLocation(ctx context.Context, orderID uint) (*lalamove.DriverLocation, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.LalamoveOrderId == "" {
		return nil, ErrNoDelivery
	}

	callCtx, cancel := context.WithTimeout(ctx, providerCallTimeout)
	defer cancel()
	return s.provider.GetDriverLocation(callCtx, order.LalamoveOrderId)
}

// CancelDelivery asks the provider to cancel an active dispatch. It is
// best-effort: failures are logged and never propagate, and the stored
// linkage fields are kept.
func (s *deliveryService) CancelDelivery(ctx context.Context, order *models.Order) {
	if order.LalamoveOrderId == "" {
		return
	}
	if s.cancelProviderOrder(ctx, order.LalamoveOrderId) {
		if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
			"lalamove_status": lalamove.StatusCanceled,
		}); err != nil {
			logger.L().Warn("failed to record provider cancellation",
				zap.Uint("order_id", order.ID), zap.Error(err))
		}
	}
}

func (s *deliveryService) cancelProviderOrder(ctx context.Context, lalamoveOrderID string) bool {
	callCtx, cancel := context.WithTimeout(ctx, providerCallTimeout)
	defer cancel()
	if err := s.provider.CancelOrder(callCtx, lalamoveOrderID); err != nil {
		logger.L().Warn("provider cancellation failed",
			zap.String("lalamove_order_id", lalamoveOrderID), zap.Error(err))
		return false
	}
	return true
}
