// Package http exposes the fleet reservation API.
//
// The router serves the following endpoints:
//   - GET /vehicles, POST /vehicles, GET|PUT|DELETE /vehicles/{id}: vehicle
//     catalog exchanging the `vehicleDTO` payload defined in vehicle_handler.go.
//   - GET /vehicles/available?start=&end=&exclude_id=: vehicles in service with
//     no blocking reservation in the half-open range.
//   - GET /reservations?vehicles=&from=&to=&status=, POST /reservations,
//     GET|PUT|DELETE /reservations/{id}: bookings exchanging `reservationDTO`
//     with `resourceId`, `startTime`, `endTime` and `status` fields. Instants
//     are RFC 3339. Overlapping writes answer 409 with the blocking bookings.
//   - POST /reservations/{id}/status: lifecycle transitions.
//   - POST /reservations/conflicts: advisory overlap check for a candidate.
//   - GET /calendar?view=month|week|day&date=YYYY-MM-DD&vehicles=: grid cells,
//     lane assignment and row segments. The ETag is the snapshot fingerprint
//     and If-None-Match answers 304.
package http
