package config

import "RegulatoryScanner/internal/domain"

const openFDAKey = "api.fda.gov"

// defaultSources is the built-in catalogue. FDA sources read the openFDA
// JSON API; the other authorities are scraped from their public listings
// and fall back to placeholder records when the layout changes.
func defaultSources() []SourceConfig {
	openFDA := PaginationConfig{Scheme: string(domain.PaginateOffset), OffsetParam: "skip", LimitParam: "limit"}

	return []SourceConfig{
		{
			Code:            "FDA_510K",
			Authority:       "FDA",
			Jurisdiction:    "US",
			Region:          "North America",
			Language:        "en",
			URL:             "https://api.fda.gov/device/510k.json?sort=decision_date:desc",
			RateLimitMillis: 500,
			RateLimitKey:    openFDAKey,
			PageSize:        100,
			MaxPages:        3,
			Parser:          string(domain.ParserJSON),
			Kind:            string(domain.KindClearance),
			SubmissionType:  "510(k)",
			Priority:        1,
			Reliability:     0.95,
			Pagination:      openFDA,
			RecordPath:      "results",
			Fields: map[string]string{
				domain.FieldNativeID:     "k_number",
				domain.FieldDeviceName:   "device_name",
				domain.FieldApplicant:    "applicant",
				domain.FieldProductCode:  "product_code",
				domain.FieldDecisionCode: "decision_code",
				domain.FieldDecisionDate: "decision_date",
				domain.FieldReviewPanel:  "review_advisory_committee",
				domain.FieldDeviceClass:  "openfda.device_class",
			},
			DocumentURL: "https://www.accessdata.fda.gov/scripts/cdrh/cfdocs/cfpmn/pmn.cfm?ID={native_id}",
		},
		{
			Code:            "FDA_PMA",
			Authority:       "FDA",
			Jurisdiction:    "US",
			Region:          "North America",
			Language:        "en",
			URL:             "https://api.fda.gov/device/pma.json?sort=decision_date:desc",
			RateLimitMillis: 500,
			RateLimitKey:    openFDAKey,
			PageSize:        100,
			MaxPages:        2,
			Parser:          string(domain.ParserJSON),
			Kind:            string(domain.KindApproval),
			SubmissionType:  "PMA",
			Priority:        1,
			Reliability:     0.95,
			Pagination:      openFDA,
			RecordPath:      "results",
			Fields: map[string]string{
				domain.FieldNativeID:     "pma_number",
				domain.FieldDeviceName:   "trade_name",
				domain.FieldApplicant:    "applicant",
				domain.FieldProductCode:  "product_code",
				domain.FieldDecisionCode: "decision_code",
				domain.FieldDecisionDate: "decision_date",
				domain.FieldReviewPanel:  "advisory_committee",
				domain.FieldDeviceClass:  "openfda.device_class",
			},
			DocumentURL: "https://www.accessdata.fda.gov/scripts/cdrh/cfdocs/cfpma/pma.cfm?id={native_id}",
		},
		{
			Code:            "FDA_RECALL",
			Authority:       "FDA",
			Jurisdiction:    "US",
			Region:          "North America",
			Language:        "en",
			URL:             "https://api.fda.gov/device/enforcement.json?sort=report_date:desc",
			RateLimitMillis: 500,
			RateLimitKey:    openFDAKey,
			PageSize:        100,
			MaxPages:        2,
			Parser:          string(domain.ParserJSON),
			Kind:            string(domain.KindRecall),
			SubmissionType:  "Recall",
			Priority:        1,
			Reliability:     0.92,
			Pagination:      openFDA,
			RecordPath:      "results",
			Fields: map[string]string{
				domain.FieldNativeID:     "recall_number",
				domain.FieldDeviceName:   "product_description",
				domain.FieldManufacturer: "recalling_firm",
				domain.FieldProductCode:  "product_code",
				domain.FieldDecisionDate: "recall_initiation_date",
				domain.FieldRecallClass:  "classification",
				domain.FieldStatus:       "status",
			},
		},
		{
			Code:           "FDA_GUIDANCE",
			Authority:      "FDA",
			Jurisdiction:   "US",
			Region:         "North America",
			Language:       "en",
			URL:            "https://www.fda.gov/about-fda/contact-fda/stay-informed/rss-feeds/medical-devices/rss.xml",
			RateLimitKey:   "www.fda.gov",
			PageSize:       50,
			MaxPages:       1,
			Parser:         string(domain.ParserXML),
			Kind:           string(domain.KindGuidance),
			SubmissionType: "Guidance",
			Priority:       2,
			Reliability:    0.9,
			RecordElement:  "item",
			Fields: map[string]string{
				domain.FieldNativeID:     "guid",
				domain.FieldDeviceName:   "title",
				domain.FieldTitle:        "title",
				domain.FieldManufacturer: "=FDA CDRH",
				domain.FieldDecisionDate: "pubDate",
				domain.FieldDocumentURL:  "link",
			},
			DateLayouts: []string{"Mon, 02 Jan 2006 15:04:05 -0700", "Mon, 02 Jan 2006 15:04:05 MST"},
		},
		{
			Code:            "EUDAMED",
			Authority:       "European Commission",
			Jurisdiction:    "EU",
			Region:          "Europe",
			Language:        "en",
			URL:             "https://ec.europa.eu/tools/eudamed/api/devices/udiDiData?iso2Code=en",
			RateLimitMillis: 1000,
			PageSize:        50,
			MaxPages:        2,
			Parser:          string(domain.ParserJSON),
			Kind:            string(domain.KindRegistration),
			SubmissionType:  "EUDAMED registration",
			Priority:        2,
			Reliability:     0.85,
			Pagination:      PaginationConfig{Scheme: string(domain.PaginatePage), PageParam: "page", LimitParam: "pageSize"},
			RecordPath:      "content",
			Fields: map[string]string{
				domain.FieldNativeID:     "primaryDi",
				domain.FieldDeviceName:   "tradeName",
				domain.FieldManufacturer: "manufacturerName",
				domain.FieldDeviceClass:  "riskClass.code",
				domain.FieldStatus:       "deviceStatusType.code",
			},
			DocumentURL: "https://ec.europa.eu/tools/eudamed/#/screen/search-device?deviceId={native_id}",
		},
		{
			Code:            "HC_MDALL",
			Authority:       "Health Canada",
			Jurisdiction:    "CA",
			Region:          "North America",
			Language:        "en",
			URL:             "https://health-products.canada.ca/api/medical-devices/licence/?lang=en&type=json",
			RateLimitMillis: 1000,
			PageSize:        500,
			MaxPages:        1,
			Parser:          string(domain.ParserJSON),
			Kind:            string(domain.KindRegistration),
			SubmissionType:  "Medical Device Licence",
			Priority:        3,
			Reliability:     0.85,
			Fields: map[string]string{
				domain.FieldNativeID:     "original_licence_no",
				domain.FieldDeviceName:   "licence_name",
				domain.FieldApplicant:    "company_id",
				domain.FieldDeviceClass:  "appl_risk_class",
				domain.FieldDecisionDate: "first_licence_status_dt",
				domain.FieldStatus:       "licence_status",
			},
		},
		{
			Code:            "TGA_ARTG",
			Authority:       "TGA",
			Jurisdiction:    "AU",
			Region:          "Oceania",
			Language:        "en",
			URL:             "https://www.tga.gov.au/resources/artg?f%5B0%5D=type%3Amedical_device",
			RateLimitMillis: 2000,
			PageSize:        25,
			MaxPages:        2,
			Parser:          string(domain.ParserHTMLTable),
			Kind:            string(domain.KindRegistration),
			SubmissionType:  "ARTG inclusion",
			Priority:        3,
			Reliability:     0.8,
			Pagination:      PaginationConfig{Scheme: string(domain.PaginatePage), PageParam: "page"},
			TableSelector:   "table.views-table",
			Columns:         []string{domain.FieldNativeID, domain.FieldDeviceName, domain.FieldManufacturer, domain.FieldDecisionDate},
			LinkColumn:      domain.FieldDeviceName,
			DateLayouts:     []string{"2 January 2006"},
		},
		{
			Code:            "MHRA_PARD",
			Authority:       "MHRA",
			Jurisdiction:    "UK",
			Region:          "Europe",
			Language:        "en",
			URL:             "https://pard.mhra.gov.uk/search-results",
			RateLimitMillis: 2000,
			PageSize:        20,
			MaxPages:        2,
			Parser:          string(domain.ParserHTMLTable),
			Kind:            string(domain.KindRegistration),
			SubmissionType:  "UKCA registration",
			Priority:        3,
			Reliability:     0.8,
			Pagination:      PaginationConfig{Scheme: string(domain.PaginatePage), PageParam: "page", FirstPage: 1},
			Columns:         []string{domain.FieldNativeID, domain.FieldManufacturer, domain.FieldDeviceName, domain.FieldDeviceClass, "-"},
			LinkColumn:      domain.FieldNativeID,
		},
		{
			Code:            "PMDA",
			Authority:       "PMDA",
			Jurisdiction:    "JP",
			Region:          "Asia",
			Language:        "ja",
			URL:             "https://www.pmda.go.jp/review-services/drug-reviews/review-information/devices/0018.html",
			RateLimitMillis: 3000,
			PageSize:        100,
			MaxPages:        1,
			Parser:          string(domain.ParserHTMLTable),
			Kind:            string(domain.KindApproval),
			SubmissionType:  "Shonin approval",
			Priority:        4,
			Reliability:     0.75,
			Columns:         []string{domain.FieldDecisionDate, domain.FieldNativeID, domain.FieldDeviceName, domain.FieldApplicant, domain.FieldDeviceClass},
			LinkColumn:      domain.FieldDeviceName,
		},
		{
			Code:            "WHO_PQ",
			Authority:       "WHO",
			Jurisdiction:    "INT",
			Region:          "Global",
			Language:        "en",
			URL:             "https://extranet.who.int/prequal/vitro-diagnostics/prequalified/in-vitro-diagnostics/export.xml",
			RateLimitMillis: 2000,
			PageSize:        200,
			MaxPages:        1,
			Parser:          string(domain.ParserXML),
			Kind:            string(domain.KindApproval),
			SubmissionType:  "WHO prequalification",
			Priority:        5,
			Reliability:     0.8,
			RecordElement:   "product",
			Fields: map[string]string{
				domain.FieldNativeID:     "@ref",
				domain.FieldDeviceName:   "name",
				domain.FieldManufacturer: "manufacturer",
				domain.FieldDecisionDate: "prequalified",
				domain.FieldDeviceClass:  "=IVD",
			},
		},
	}
}
