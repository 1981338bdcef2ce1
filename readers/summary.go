package readers

type ProcessingSummary struct {
	TotalFiles  int            `json:"total_files"`
	Successful  int            `json:"successful"`
	Failed      int            `json:"failed"`
	TotalWords  int            `json:"total_words"`
	FileTypes   map[string]int `json:"file_types"`
	FailedFiles []string       `json:"failed_files"`
}

func Summarize(docs []RawDocument) ProcessingSummary {
	s := ProcessingSummary{
		TotalFiles:  len(docs),
		FileTypes:   make(map[string]int),
		FailedFiles: []string{},
	}

	for _, d := range docs {
		s.FileTypes[d.Extension]++
		if d.OK() {
			s.Successful++
			s.TotalWords += d.WordCount
			continue
		}
		s.Failed++
		s.FailedFiles = append(s.FailedFiles, d.Filename)
	}

	return s
}
