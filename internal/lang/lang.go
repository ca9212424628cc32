package lang

type Language struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Languages lists the selectable languages. English is the default; an
// empty code lets the model detect the language itself.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

// Code maps a display name to its whisper language code.
func Code(name string) (string, bool) {
	for _, l := range languages {
		if l.Name == name {
			return l.Code, true
		}
	}
	return "", false
}

// Known reports whether code is selectable. The empty code means detect.
func Known(code string) bool {
	for _, l := range languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

var languages = []Language{
	{"English", "en"},
	{"Auto-detect", ""},
	{"Arabic", "ar"},
	{"Bengali", "bn"},
	{"Chinese", "zh"},
	{"Czech", "cs"},
	{"Danish", "da"},
	{"Dutch", "nl"},
	{"Finnish", "fi"},
	{"French", "fr"},
	{"German", "de"},
	{"Greek", "el"},
	{"Hebrew", "he"},
	{"Hindi", "hi"},
	{"Hungarian", "hu"},
	{"Indonesian", "id"},
	{"Italian", "it"},
	{"Japanese", "ja"},
	{"Korean", "ko"},
	{"Malay", "ms"},
	{"Norwegian", "no"},
	{"Persian", "fa"},
	{"Polish", "pl"},
	{"Portuguese", "pt"},
	{"Punjabi", "pa"},
	{"Romanian", "ro"},
	{"Russian", "ru"},
	{"Spanish", "es"},
	{"Swedish", "sv"},
	{"Tamil", "ta"},
	{"Thai", "th"},
	{"Turkish", "tr"},
	{"Ukrainian", "uk"},
	{"Urdu", "ur"},
	{"Vietnamese", "vi"},
}
