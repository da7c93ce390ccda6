// Package ratelimit guards calls to the upstream market-data API with an
// adaptive delay: admissions are spaced by a current delay that grows on
// observed throttling and shrinks again while calls succeed.
package ratelimit
