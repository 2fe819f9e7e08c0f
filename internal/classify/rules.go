package classify

import "RegulatoryScanner/internal/domain"

// Therapeutic areas of the controlled vocabulary.
const (
	AreaCardiology      = "Cardiology"
	AreaOrthopedics     = "Orthopedics"
	AreaRadiology       = "Radiology"
	AreaNeurology       = "Neurology"
	AreaClinicalChem    = "Clinical Chemistry"
	AreaMicrobiology    = "Microbiology"
	AreaInfectious      = "Infectious Disease"
	AreaEndocrinology   = "Endocrinology"
	AreaDental          = "Dental"
	AreaOphthalmology   = "Ophthalmology"
	AreaGeneralSurgery  = "General Surgery"
	AreaGeneralHospital = "General Hospital"
	AreaAnesthesiology  = "Anesthesiology"
	AreaGastroUrology   = "Gastroenterology & Urology"
	AreaObGyn           = "Obstetrics & Gynecology"
	AreaENT             = "Ear Nose & Throat"
	AreaPhysicalMed     = "Physical Medicine"
	AreaHematology      = "Hematology"
	AreaImmunology      = "Immunology"
	AreaPathology       = "Pathology"
	AreaToxicology      = "Toxicology"
	AreaGeneral         = "General"
)

// CodeRule is the verdict for one product code.
type CodeRule struct {
	Class domain.DeviceClass
	Area  string
}

// KeywordRule assigns Class when any keyword occurs in the device text.
// Keywords match whole-word prefixes, so "implant" also hits "implantable".
// Keyword verdicts override the class an authority reports, so tables should
// only name devices whose class is unambiguous.
type KeywordRule struct {
	Name     string
	Class    domain.DeviceClass
	Keywords []string
}

// AreaRule assigns Area when any keyword occurs in the device text.
type AreaRule struct {
	Area     string
	Keywords []string
}

// PanelRule maps a review panel, given either as its two-letter code or a
// description fragment, to a therapeutic area.
type PanelRule struct {
	Code  string
	Match string
	Area  string
}

// Rules is the declarative input of the classifier. Tables are consulted
// in order; earlier entries win.
type Rules struct {
	// ProductCodes is keyed by upper-case jurisdiction, then product code.
	ProductCodes  map[string]map[string]CodeRule
	ClassKeywords []KeywordRule
	AreaKeywords  []AreaRule
	Panels        []PanelRule
	DefaultClass  domain.DeviceClass
}

// DefaultRules returns the built-in rule tables.
func DefaultRules() Rules {
	return Rules{
		ProductCodes: map[string]map[string]CodeRule{
			"US": {
				"DXX": {Class: domain.ClassII, Area: AreaCardiology},
				"DQY": {Class: domain.ClassII, Area: AreaCardiology},
				"MHX": {Class: domain.ClassII, Area: AreaCardiology},
				"LWS": {Class: domain.ClassIII, Area: AreaCardiology},
				"NIQ": {Class: domain.ClassIII, Area: AreaCardiology},
				"HRS": {Class: domain.ClassII, Area: AreaOrthopedics},
				"LLZ": {Class: domain.ClassII, Area: AreaRadiology},
				"QIH": {Class: domain.ClassII, Area: AreaRadiology},
				"DZE": {Class: domain.ClassII, Area: AreaDental},
				"NBW": {Class: domain.ClassIVD, Area: AreaClinicalChem},
				"FMI": {Class: domain.ClassII, Area: AreaGeneralHospital},
			},
		},
		ClassKeywords: []KeywordRule{
			{
				Name:  "high-risk",
				Class: domain.ClassIII,
				Keywords: []string{
					"implant", "pacemaker", "defibrillator", "stent", "valve", "prosthesis",
					"neurostimulator", "cochlear", "ventricular assist", "breast implant",
				},
			},
		},
		AreaKeywords: []AreaRule{
			{Area: AreaCardiology, Keywords: []string{"cardiac", "cardio", "heart", "pacemaker", "defibrillator", "stent", "coronary", "valve", "ecg", "ekg", "arrhythmia", "intravascular", "vascular"}},
			{Area: AreaInfectious, Keywords: []string{"hiv", "malaria", "hepatitis", "hcv", "hbv", "covid", "sars", "influenza", "tuberculosis", "syphilis"}},
			{Area: AreaEndocrinology, Keywords: []string{"glucose", "insulin", "diabetes", "diabetic", "thyroid", "hba1c"}},
			{Area: AreaOrthopedics, Keywords: []string{"orthopedic", "orthopaedic", "bone", "spine", "spinal", "knee", "hip", "joint", "fracture"}},
			{Area: AreaRadiology, Keywords: []string{"x-ray", "radiograph", "radiology", "radiological", "tomography", "mri", "magnetic resonance", "ultrasound", "imaging"}},
			{Area: AreaNeurology, Keywords: []string{"neuro", "brain", "eeg", "epilepsy", "cranial", "neurostimulator"}},
			{Area: AreaOphthalmology, Keywords: []string{"ophthalmic", "intraocular", "contact lens", "retina", "retinal", "cornea", "corneal", "eye"}},
			{Area: AreaDental, Keywords: []string{"dental", "tooth", "teeth", "orthodontic", "endosseous"}},
			{Area: AreaENT, Keywords: []string{"cochlear", "hearing", "otologic", "nasal", "sinus"}},
			{Area: AreaAnesthesiology, Keywords: []string{"anesthesia", "anaesthesia", "ventilator", "breathing", "oxygen", "airway"}},
			{Area: AreaGastroUrology, Keywords: []string{"endoscope", "gastro", "urinary", "urology", "dialysis", "catheter urinary"}},
			{Area: AreaObGyn, Keywords: []string{"obstetric", "gynecologic", "gynaecologic", "fetal", "uterine", "contracept"}},
			{Area: AreaHematology, Keywords: []string{"blood", "hematology", "haematology", "coagulation"}},
			{Area: AreaClinicalChem, Keywords: []string{"assay", "reagent", "analyzer", "analyser", "chemistry"}},
			{Area: AreaGeneralSurgery, Keywords: []string{"surgical", "suture", "scalpel", "laparoscopic", "staple"}},
			{Area: AreaGeneralHospital, Keywords: []string{"glove", "bandage", "syringe", "needle", "infusion", "wheelchair", "gauze", "tongue depressor", "thermometer"}},
		},
		Panels: []PanelRule{
			{Code: "CV", Match: "cardiovascular", Area: AreaCardiology},
			{Code: "OR", Match: "orthopedic", Area: AreaOrthopedics},
			{Code: "RA", Match: "radiology", Area: AreaRadiology},
			{Code: "NE", Match: "neurology", Area: AreaNeurology},
			{Code: "CH", Match: "clinical chemistry", Area: AreaClinicalChem},
			{Code: "MI", Match: "microbiology", Area: AreaMicrobiology},
			{Code: "DE", Match: "dental", Area: AreaDental},
			{Code: "OP", Match: "ophthalmic", Area: AreaOphthalmology},
			{Code: "SU", Match: "surgery", Area: AreaGeneralSurgery},
			{Code: "HO", Match: "general hospital", Area: AreaGeneralHospital},
			{Code: "AN", Match: "anesthesiology", Area: AreaAnesthesiology},
			{Code: "GU", Match: "gastroenterology", Area: AreaGastroUrology},
			{Code: "OB", Match: "obstetrics", Area: AreaObGyn},
			{Code: "EN", Match: "ear, nose", Area: AreaENT},
			{Code: "PM", Match: "physical medicine", Area: AreaPhysicalMed},
			{Code: "HE", Match: "hematology", Area: AreaHematology},
			{Code: "IM", Match: "immunology", Area: AreaImmunology},
			{Code: "PA", Match: "pathology", Area: AreaPathology},
			{Code: "TX", Match: "toxicology", Area: AreaToxicology},
		},
		DefaultClass: domain.ClassII,
	}
}
