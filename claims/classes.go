package claims

// ClassName pairs a raw therapeutic class code with its short display label.
type ClassName struct {
	Code  string `yaml:"code" json:"code"`
	Label string `yaml:"label" json:"label"`
}

// ClassNames is an ordered display mapping for drug classes. It is used for
// presentation only; grouping and filtering always use the raw code.
type ClassNames []ClassName

// DefaultClassNames returns the standard GPI therapeutic class labels.
// A fresh slice is returned on every call.
func DefaultClassNames() ClassNames {
	return ClassNames{
		{"Antihistamines/Nasal Agents/Cough & Cold/Respiratory/Misc (41-45)", "Respiratory"},
		{"Neuromuscular Agents (72-76)", "Neuromuscular"},
		{"Gastrointestinal Agents (46-52)", "Stomach/GI"},
		{"Anti-Infective Agents (01-16)", "Anti-Infective"},
		{"Endocrine and Metabolic Agents (22-30)", "Endocrine"},
		{"ADHD/Anti-Narcolepsy /Anti-Obesity/Anorexiant Agents (61-61)", "Stimulants"},
		{"Nutritional Products (77-81)", "Nutritional"},
		{"Central Nervous System Agents (57-60)", "Central Nervous System"},
		{"Genitourinary Antispasmodics/Vaginal Products/Misc (53-56)", "Genitourinary"},
		{"Hematological Agents (82-85)", "Hematological"},
		{"Psychotherapeutic and Neurological Agents - Miscellaneous (62-63)", "Parkinson/Neurological"},
		{"Miscellaneous Products (92-99)", "Miscellaneous"},
		{"Dermatological/Anorectal/Mouth-Throat/Dental/Ophthalmic/Otic (86-91)", "Dermatological/ENT"},
		{"Analgesic/Anti-Inflammatory/Migraine/Gout Agents/Anesthetics (64-71)", "Pain/Inflammation"},
		{"Antineoplastic Agents and Adjunctive Therapies (21-21)", "Cancer"},
		{"Cardiovascular Agents (31-40)", "Cardiovascular"},
	}
}

// Display returns the label for code, or code itself when it is not mapped.
func (c ClassNames) Display(code string) string {
	for _, cn := range c {
		if cn.Code == code {
			return cn.Label
		}
	}
	return code
}

// Labels returns the labels in mapping order.
func (c ClassNames) Labels() []string {
	out := make([]string, len(c))
	for i, cn := range c {
		out[i] = cn.Label
	}
	return out
}
