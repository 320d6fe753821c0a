package services

import "slidecraft-backend/internal/models"

const DefaultTemplateID = "modern"

var templateRegistry = []models.Template{
	{
		ID:          "modern",
		Name:        "简约现代",
		BgClass:     "bg-white",
		TextClass:   "text-slate-900",
		AccentClass: "bg-indigo-600",
		BorderClass: "border-slate-100",
		FontFamily:  "sans-serif",
	},
	{
		ID:          "business",
		Name:        "商务经典",
		BgClass:     "bg-slate-50",
		TextClass:   "text-blue-950",
		AccentClass: "bg-blue-800",
		BorderClass: "border-blue-200",
		FontFamily:  "serif",
	},
	{
		ID:          "tech",
		Name:        "科技未来",
		BgClass:     "bg-gray-950",
		TextClass:   "text-cyan-50",
		AccentClass: "bg-cyan-500",
		BorderClass: "border-cyan-900",
		FontFamily:  "monospace",
	},
	{
		ID:          "vibrant",
		Name:        "创意多姿",
		BgClass:     "bg-orange-50",
		TextClass:   "text-orange-950",
		AccentClass: "bg-orange-500",
		BorderClass: "border-orange-200",
		FontFamily:  "sans-serif",
	},
}

// Templates returns the visual themes in display order. The slice is a copy.
func Templates() []models.Template {
	out := make([]models.Template, len(templateRegistry))
	copy(out, templateRegistry)
	return out
}

func TemplateByID(id string) (models.Template, bool) {
	for _, t := range templateRegistry {
		if t.ID == id {
			return t, true
		}
	}
	return models.Template{}, false
}

// TemplateOrDefault resolves id, falling back to the default theme.
func TemplateOrDefault(id string) models.Template {
	if t, ok := TemplateByID(id); ok {
		return t
	}
	return templateRegistry[0]
}
