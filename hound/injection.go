package hound

// InjectionPoint is a user controllable input found while crawling
type InjectionPoint struct {
	URL    string `json:"url"`
	Field  string `json:"field"`
	Method string `json:"method"`
	Value  string `json:"value"`
}

// Equal if all fields match
func (i *InjectionPoint) Equal(other *InjectionPoint) bool {
	if i == nil || other == nil {
		return i == other
	}
	return *i == *other
}
