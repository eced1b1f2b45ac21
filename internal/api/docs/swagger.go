package docs

import (
	"time"

	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// RegisterFaceResponse represents the response for an enrollment upload
type RegisterFaceResponse struct {
	ID         string `json:"id" example:"P1"`
	Category   string `json:"category" example:"official"`
	FacesSaved int    `json:"faces_saved" example:"1"`
}

type ListFacesResponse struct {
	IDs []string `json:"ids" example:"P1,P2"`
}

type DeleteFaceResponse struct {
	ID      string `json:"id" example:"P1"`
	Deleted bool   `json:"deleted" example:"true"`
}

type DetectionData struct {
	BBox       []int     `json:"bbox" example:"412,188,96,96"`
	Label      string    `json:"label" example:"P1"`
	Confidence float64   `json:"confidence" example:"42.1"`
	Category   string    `json:"category" example:"official"`
	FaceMatch  bool      `json:"face_match" example:"true"`
	Alert      bool      `json:"alert" example:"false"`
	Timestamp  time.Time `json:"timestamp" example:"2026-01-01T00:00:00Z"`
}

type DetectionsResponse struct {
	FrameSize  []int           `json:"frame_size" example:"1280,720"`
	Detections []DetectionData `json:"detections"`
	CapturedAt string          `json:"captured_at,omitempty" example:"2026-01-01T00:00:00Z"`
	State      string          `json:"state" example:"running"`
}

type ClassifierStatsResponse struct {
	Trained    bool    `json:"trained" example:"true"`
	Identities int     `json:"identities" example:"4"`
	Samples    int     `json:"samples" example:"37"`
	TrainedAt  string  `json:"trained_at,omitempty" example:"2026-01-01T00:00:00Z"`
	Threshold  float64 `json:"threshold" example:"85"`
}

type AlertRecord struct {
	ID         string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Label      string  `json:"label" example:"unknown"`
	Category   string  `json:"category" example:"unknown"`
	Confidence float64 `json:"confidence" example:"0"`
	FaceMatch  bool    `json:"face_match" example:"false"`
	BBox       []int   `json:"bbox" example:"412,188,96,96"`
	DetectedAt string  `json:"detected_at" example:"2026-01-01T00:00:00Z"`
	CreatedAt  string  `json:"created_at" example:"2026-01-01T00:00:00Z"`
}

type AlertsResponse struct {
	Alerts []AlertRecord `json:"alerts"`
}

type SoldierData struct {
	ID        string    `json:"id" example:"S1"`
	Name      string    `json:"name" example:"Alpha"`
	Activity  string    `json:"activity" example:"patrol"`
	Status    string    `json:"status" example:"ok"`
	HeartRate int       `json:"heart_rate" example:"96"`
	GPS       []float64 `json:"gps" example:"28.6129,77.2295"`
	UpdatedAt string    `json:"updated_at" example:"2026-01-01T00:00:00Z"`
}

type SoldiersResponse struct {
	Soldiers []SoldierData `json:"soldiers"`
}

type HealthResponse struct {
	Status  string `json:"status" example:"ready"`
	Version string `json:"version,omitempty" example:"0.1.0"`
	Live    string `json:"live,omitempty" example:"running"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var internalError = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "VeerDrishti Surveillance API",
		Version:     "v1.0.0",
		Description: "Face gallery enrollment, live recognition snapshots, alert history and unit telemetry",
		Host:        "localhost:8000",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		endpoint.New(
			endpoint.POST,
			"/api/register-face",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Enroll faces for an identity"),
			endpoint.WithDescription("Multipart form with fields id, category (official|citizen|criminal, default citizen) and file. Every face found in the image is stored as a crop and the classifier is retrained. An image without faces returns faces_saved=0."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RegisterFaceResponse{}, "200", "Upload processed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "id is required"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/api/faces",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("List enrolled identities"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("detail", parameter.Query, parameter.WithDescription("true to include category and crop count per identity")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListFacesResponse{}, "200", "Identity ids, sorted"),
			}),
			endpoint.WithErrors([]response.Response{internalError}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/api/faces/{id}",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Delete an identity"),
			endpoint.WithDescription("Removes every crop of the identity and retrains the classifier"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Identity id")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DeleteFaceResponse{}, "200", "Identity deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/api/frame.jpg",
			endpoint.WithTags("Live"),
			endpoint.WithSummary("Latest annotated frame"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("image/jpeg")}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "200", "JPEG image"),
				response.New(EmptyResponse{}, "204", "No frame published yet"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/api/detections",
			endpoint.WithTags("Live"),
			endpoint.WithSummary("Detections of the latest frame"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DetectionsResponse{}, "200", "Latest snapshot without image bytes"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/api/classifier",
			endpoint.WithTags("Classifier"),
			endpoint.WithSummary("Classifier state"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClassifierStatsResponse{}, "200", "Current classifier stats"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/api/train",
			endpoint.WithTags("Classifier"),
			endpoint.WithSummary("Retrain the classifier"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClassifierStatsResponse{}, "200", "Stats after training"),
			}),
			endpoint.WithErrors([]response.Response{internalError}),
		),

		endpoint.New(
			endpoint.GET,
			"/api/alerts",
			endpoint.WithTags("Alerts"),
			endpoint.WithSummary("Recent alert detections"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of records (1-200, default 50)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AlertsResponse{}, "200", "Newest first"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HISTORY_DISABLED", Message: "Detection history is not configured"}, "503", "Service Unavailable"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/api/soldiers",
			endpoint.WithTags("Telemetry"),
			endpoint.WithSummary("Unit telemetry snapshot"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SoldiersResponse{}, "200", "Latest simulated readings"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness"),
			endpoint.WithDescription("200 while the live loop is running, 503 otherwise"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Ready"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "not_ready", Live: "stopped"}, "503", "Service Unavailable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
