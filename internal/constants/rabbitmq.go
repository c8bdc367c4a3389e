package constants

// Обменник событий каталога.
const (
	ListingEventsExchange = "listing_events_exchange"
)

// Ключи маршрутизации по типам событий.
const (
	RoutingKeyListingNew         = "listings.event.new"
	RoutingKeyListingPriceChange = "listings.event.price_change"
	RoutingKeyListingRemoved     = "listings.event.removed"
)
