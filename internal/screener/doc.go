// Package screener implements the market-screening domain: fetching price
// history through the rate limiter, computing trend indicators, filtering
// against qualification thresholds, and wiring scan task handlers.
package screener
