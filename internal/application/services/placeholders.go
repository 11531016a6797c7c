package services

import "github.com/zatekoja/firstresponder/backend/internal/domain/entities"

// PlaceholderDistance is shown instead of a computed distance
const PlaceholderDistance = "Nearby"

// placeholderResponders is the static, non-live list shown when no real
// responder can be displayed
func placeholderResponders() []entities.ResponderView {
	return []entities.ResponderView{
		{Name: "Community First Responder", Role: "CFR", Status: entities.ResponseStatusPending, Label: entities.ResponderLabelAwaiting, Distance: PlaceholderDistance},
		{Name: "ASHA Worker", Role: "ASHA Worker", Status: entities.ResponseStatusPending, Label: entities.ResponderLabelAwaiting, Distance: PlaceholderDistance},
		{Name: "Primary Health Centre", Role: "PHC Staff", Status: entities.ResponseStatusPending, Label: entities.ResponderLabelAwaiting, Distance: PlaceholderDistance},
	}
}

func responderLabel(status entities.ResponseStatus) string {
	switch status {
	case entities.ResponseStatusAccepted:
		return entities.ResponderLabelArriving
	case entities.ResponseStatusDeclined:
		return entities.ResponderLabelDeclined
	default:
		return entities.ResponderLabelAwaiting
	}
}
