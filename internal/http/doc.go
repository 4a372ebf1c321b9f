// Package http provides HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints:
//   - GET /bookings, POST /bookings, DELETE /bookings/{id}: booking management
//     exchanging the `bookingDTO` payload defined in booking_handler.go.
//     Creation carries the caller's Google tokens in the request body;
//     cancellation carries them in the `X-Google-Access-Token` and
//     `X-Google-Refresh-Token` headers.
//   - POST /availability: checks a time slot against local bookings and the
//     caller's Google Calendar, returning both conflict lists.
//   - POST /calendar/watch: registers a push-notification channel for the
//     caller's calendar. Requires a previously stored refresh token.
//   - POST /calendar/watch/refresh-token: stores the caller's Google refresh
//     token for watch registration and reconciliation.
//   - POST /webhooks/google-calendar: receives Google push notifications via
//     the X-Goog-Channel-Id / X-Goog-Channel-Token / X-Goog-Resource-State
//     headers. Always answers 200.
//
// The principal is taken from the `X-User-ID` header set by the upstream auth
// proxy; endpoints other than the webhook reject requests without it.
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
