package config

type WorkerKeyStruct struct {
	CurriculumImportQueue string
}

var WorkerKey = &WorkerKeyStruct{
	CurriculumImportQueue: "curriculum_import_queue",
}
