package models

// EquipmentStatus represents the operating state of a piece of equipment.
type EquipmentStatus string

const (
	EquipmentNormal  EquipmentStatus = "normal"
	EquipmentWarning EquipmentStatus = "warning"
	EquipmentError   EquipmentStatus = "error"
	// EquipmentStopped is entered only via an interlock action and left
	// only via an explicit rearm; sensor-driven evaluation never
	// overwrites it.
	EquipmentStopped EquipmentStatus = "stopped"
)

// EquipmentState is the current status and efficiency of one piece of
// equipment.
type EquipmentState struct {
	Equipment  string          `json:"equipment"`
	Status     EquipmentStatus `json:"status"`
	Efficiency float64         `json:"efficiency"`
}
