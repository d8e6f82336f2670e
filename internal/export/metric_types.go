package export

// MetricType is the broad category a metric name belongs to. It is stored
// alongside every metric row so downstream queries can slice by category
// without re-deriving it from names.
type MetricType string

const (
	TypeActivity    MetricType = "activity"
	TypeVitals      MetricType = "vitals"
	TypeBody        MetricType = "body"
	TypeSleep       MetricType = "sleep"
	TypeNutrition   MetricType = "nutrition"
	TypeMobility    MetricType = "mobility"
	TypeMindfulness MetricType = "mindfulness"
	TypeHearing     MetricType = "hearing"
	TypeOther       MetricType = "other"
)

var metricTypes = map[string]MetricType{
	// Activity
	"step_count":               TypeActivity,
	"active_energy":            TypeActivity,
	"basal_energy_burned":      TypeActivity,
	"apple_exercise_time":      TypeActivity,
	"apple_stand_hour":         TypeActivity,
	"apple_stand_time":         TypeActivity,
	"flights_climbed":          TypeActivity,
	"walking_running_distance": TypeActivity,
	"cycling_distance":         TypeActivity,
	"swimming_distance":        TypeActivity,
	"swimming_stroke_count":    TypeActivity,
	"physical_effort":          TypeActivity,

	// Vitals
	"heart_rate":                       TypeVitals,
	"resting_heart_rate":               TypeVitals,
	"walking_heart_rate_average":       TypeVitals,
	"heart_rate_variability":           TypeVitals,
	"blood_oxygen_saturation":          TypeVitals,
	"respiratory_rate":                 TypeVitals,
	"blood_pressure_systolic":          TypeVitals,
	"blood_pressure_diastolic":         TypeVitals,
	"blood_glucose":                    TypeVitals,
	"body_temperature":                 TypeVitals,
	"apple_sleeping_wrist_temperature": TypeVitals,

	// Body measurements
	"weight_body_mass":    TypeBody,
	"body_fat_percentage": TypeBody,
	"lean_body_mass":      TypeBody,
	"body_mass_index":     TypeBody,
	"height":              TypeBody,
	"waist_circumference": TypeBody,

	// Sleep
	"sleep_analysis":                        TypeSleep,
	"apple_sleeping_breathing_disturbances": TypeSleep,

	// Nutrition
	"dietary_energy":   TypeNutrition,
	"dietary_water":    TypeNutrition,
	"dietary_caffeine": TypeNutrition,
	"dietary_sugar":    TypeNutrition,
	"protein":          TypeNutrition,
	"carbohydrates":    TypeNutrition,
	"total_fat":        TypeNutrition,
	"fiber":            TypeNutrition,
	"sodium":           TypeNutrition,
	"calcium":          TypeNutrition,
	"potassium":        TypeNutrition,

	// Mobility
	"walking_speed":                     TypeMobility,
	"walking_step_length":               TypeMobility,
	"walking_asymmetry_percentage":      TypeMobility,
	"walking_double_support_percentage": TypeMobility,
	"six_minute_walking_test_distance":  TypeMobility,
	"stair_speed_down":                  TypeMobility,
	"stair_speed_up":                    TypeMobility,
	"apple_walking_steadiness":          TypeMobility,

	// Mindfulness
	"mindful_minutes": TypeMindfulness,

	// Hearing
	"environmental_audio_exposure": TypeHearing,
	"headphone_audio_exposure":     TypeHearing,
}

// LookupMetricType classifies a metric name, returning TypeOther for names
// not in the table. Unknown names are expected; the exporter adds metrics
// faster than servers update.
func LookupMetricType(name string) MetricType {
	if t, ok := metricTypes[name]; ok {
		return t
	}
	return TypeOther
}
