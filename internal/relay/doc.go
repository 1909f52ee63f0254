// Package relay publishes finished posts through one of the supported
// posting methods: direct LinkedIn API calls authorized with OAuth, a
// Make.com webhook, a Zapier webhook or the Buffer scheduling API.
//
// Every relay call runs behind its own circuit breaker. A relay that keeps
// failing is skipped quickly with a transient error until the breaker
// half-opens again; nothing here retries, the user decides when to publish
// again.
package relay
