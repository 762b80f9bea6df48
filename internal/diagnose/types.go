package diagnose

// HealthySentinel is the disease name carried by the single synthetic record
// of a healthy diagnosis; its Reason field holds care tips instead of pathology.
const HealthySentinel = "Healthy"

// PlantIdentity is the result of the identification step. CommonName and
// LatinName are only present when IsPlant is true. Immutable once produced.
type PlantIdentity struct {
	IsPlant    bool   `json:"isPlant"`
	CommonName string `json:"commonName,omitempty"`
	LatinName  string `json:"latinName,omitempty"`
}

// DiagnosisRecord is one ranked disease hypothesis.
type DiagnosisRecord struct {
	DiseaseName     string  `json:"diseaseName"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Reason          string  `json:"reason"`
	Precaution      string  `json:"precaution"`
	Remedy          string  `json:"remedy"`
}

// DiagnosisResult holds disease hypotheses in relevance order,
// most-likely-first. When IsHealthy is true the list contains exactly one
// Healthy sentinel record.
type DiagnosisResult struct {
	DiseaseDiagnoses []DiagnosisRecord `json:"diseaseDiagnoses"`
	IsHealthy        *bool             `json:"isHealthy,omitempty"`
}

// Healthy reports whether the plant was judged healthy.
func (r DiagnosisResult) Healthy() bool {
	return r.IsHealthy != nil && *r.IsHealthy
}

// Usable reports whether the result can be shown to the user: either the
// plant is healthy or at least one disease hypothesis exists. An unusable
// result is treated as an unclear image, not a transport failure.
func (r DiagnosisResult) Usable() bool {
	return r.Healthy() || len(r.DiseaseDiagnoses) > 0
}

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is a single entry of the follow-up conversation. History is
// insertion-ordered and replayed verbatim to the model on each new turn.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// normalize clamps confidence scores to [0,1] and collapses a healthy result
// to its single sentinel record.
func (r *DiagnosisResult) normalize() {
	for i := range r.DiseaseDiagnoses {
		if r.DiseaseDiagnoses[i].ConfidenceScore < 0 {
			r.DiseaseDiagnoses[i].ConfidenceScore = 0
		}
		if r.DiseaseDiagnoses[i].ConfidenceScore > 1 {
			r.DiseaseDiagnoses[i].ConfidenceScore = 1
		}
	}
	if !r.Healthy() {
		return
	}
	keep := DiagnosisRecord{DiseaseName: HealthySentinel, ConfidenceScore: 1}
	if len(r.DiseaseDiagnoses) > 0 {
		keep = r.DiseaseDiagnoses[0]
		for _, d := range r.DiseaseDiagnoses {
			if d.DiseaseName == HealthySentinel {
				keep = d
				break
			}
		}
	}
	keep.DiseaseName = HealthySentinel
	r.DiseaseDiagnoses = []DiagnosisRecord{keep}
}
