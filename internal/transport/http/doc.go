// Package http implements the HTTP front of the dashboard. Handlers stay
// thin: they parse and validate the request, call services.Dashboard and
// format the answer.
//
// # Routes
//
//	GET /api/views/aggregate-metrics     metric cards and deviation table (JSON)
//	GET /api/views/aggregate-graphic     chart data, ?top=n brands
//	GET /api/views/brands                brand picker, ?top=n
//	GET /api/views/brands/{brand}        colour breakdown of one brand
//	GET /api/export/deviations.csv       deviation table download
//	GET /api/export/dashboard.xlsx       styled workbook download
//	GET /  and  GET /views/{view}        server-rendered pages
//	GET /ws                              websocket menu
//	GET /api/health[/ready|/live]        health checks
//	GET /api/version                     build information
//
// # Error Handling
//
// Failures are answered with RFC 7807 problem documents through
// errors.ErrorHandler. Service errors are mapped first with
// services.ToAPIError:
//
//	{
//	    "type": "/errors/brand/not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "brand \"Tesla\" not found",
//	    "instance": "/api/views/brands/Tesla"
//	}
//
// Query parameters are checked with middleware.QueryParamValidator and path
// parameters with the struct validator of middleware.ValidationMiddleware.
//
// # WebSocket
//
// WebSocketHandler upgrades the connection with gorilla/websocket and hands
// it to the websocket hub, which answers every {"view","brand"} selection
// with the rendered view model or a problem document.
package http
