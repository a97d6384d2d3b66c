package models

// FitnessLevel задаёт уровень подготовки участника.
type FitnessLevel string

const (
	FitnessBeginner     FitnessLevel = "beginner"
	FitnessIntermediate FitnessLevel = "intermediate"
	FitnessAdvanced     FitnessLevel = "advanced"
	FitnessElite        FitnessLevel = "elite"
)

// Valid сообщает, входит ли уровень в допустимый набор.
func (l FitnessLevel) Valid() bool {
	switch l {
	case FitnessBeginner, FitnessIntermediate, FitnessAdvanced, FitnessElite:
		return true
	}
	return false
}

// FitnessGoal задаёт цель тренировок.
type FitnessGoal string

const (
	GoalWeightLoss     FitnessGoal = "weight_loss"
	GoalMuscleGain     FitnessGoal = "muscle_gain"
	GoalEndurance      FitnessGoal = "endurance"
	GoalFlexibility    FitnessGoal = "flexibility"
	GoalStrength       FitnessGoal = "strength"
	GoalGeneralFitness FitnessGoal = "general_fitness"
)

// Valid сообщает, входит ли цель в допустимый набор.
func (g FitnessGoal) Valid() bool {
	switch g {
	case GoalWeightLoss, GoalMuscleGain, GoalEndurance, GoalFlexibility, GoalStrength, GoalGeneralFitness:
		return true
	}
	return false
}

// EmergencyContact хранит контакт для экстренной связи.
type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// FitnessProfile описывает анкету участника. На права доступа не влияет.
type FitnessProfile struct {
	FitnessLevel      FitnessLevel     `json:"fitness_level"`
	Goals             []FitnessGoal    `json:"goals"`
	MedicalConditions []string         `json:"medical_conditions"`
	EmergencyContact  EmergencyContact `json:"emergency_contact"`
}

// DefaultFitnessProfile возвращает анкету новой учётной записи.
func DefaultFitnessProfile() FitnessProfile {
	return FitnessProfile{
		FitnessLevel:      FitnessBeginner,
		Goals:             []FitnessGoal{},
		MedicalConditions: []string{},
	}
}

// Clone возвращает копию анкеты, не разделяющую срезы с исходной.
func (p FitnessProfile) Clone() FitnessProfile {
	c := p
	c.Goals = append([]FitnessGoal{}, p.Goals...)
	c.MedicalConditions = append([]string{}, p.MedicalConditions...)
	return c
}
