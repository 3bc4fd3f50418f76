package catalog

// Model tables referenced by the built-in catalog.
const (
	tableVisit      = "Fact_Visit"
	tableOrder      = "Fact_Order"
	tableConversion = "Fact_ProjectConversion"
	tableMeasures   = "Measures"
	tableDate       = "Dim_Date"
	tableTerritory  = "Dim_Territory"
	tableClient     = "Dim_Client"
	tableUser       = "Dim_User"
)

// Data roles used by the built-in catalog.
const (
	RoleCategory = "Category"
	RoleValues   = "Values"
	RoleSeries   = "Series"
	RoleRows     = "Rows"
)

var funnelStages = []string{"Visits", "Conversions", "Orders", "Delivered"}

// Default returns the built-in six-page BMD Sales catalog.
func Default() *ReportCatalog {
	c, err := New(Canvas{}, defaultPages())
	if err != nil {
		panic("catalog: built-in catalog is invalid: " + err.Error())
	}
	return c
}

func defaultPages() []PageSpec {
	return []PageSpec{
		{
			Name:        "ExecutiveCommandCenter",
			DisplayName: "Executive Command Center",
			Ordinal:     0,
			Visuals: []VisualDescriptor{
				{Kind: KindText, Layout: Rect(0, 0, 1920, 60), Title: "Header"},
				titled(single(KindCard, Rect(40, 160, 340, 150), Measure(tableVisit, "Total Visits")), "VISITS"),
				titled(single(KindCard, Rect(400, 160, 340, 150), Measure(tableOrder, "Total Orders")), "ORDERS"),
				titled(single(KindCard, Rect(760, 160, 340, 150), Measure(tableConversion, "Total Conversions")), "CONVERSIONS"),
				titled(single(KindKPI, Rect(1120, 160, 340, 150), Measure(tableVisit, "Conversion Rate 60D %")), "CONV RATE 60D"),
				titled(single(KindCard, Rect(1480, 160, 380, 150), Measure(tableOrder, "Order Amount YTD")), "REVENUE YTD"),
				chart(KindLine, Rect(40, 340, 900, 350), Column(tableDate, "Date"), Measure(tableVisit, "Total Visits")),
				chart(KindMap, Rect(960, 340, 900, 350), Column(tableTerritory, "ZoneName"), Measure(tableVisit, "Conversion Rate 60D %")),
				chart(KindDonut, Rect(40, 710, 580, 330), Column(tableClient, "ClientType"), Measure(tableVisit, "Total Visits")),
				chart(KindBar, Rect(640, 710, 620, 330), Column(tableUser, "RoleName"), Measure(tableMeasures, "Role Target Achievement %")),
				staged(chart(KindFunnel, Rect(1280, 710, 580, 330), Column(tableMeasures, "Funnel Stage"), Measure(tableMeasures, "Stage Count")), funnelStages),
				slicer(Rect(40, 1040, 200, 40), Column(tableDate, "Date")),
				slicer(Rect(260, 1040, 200, 40), Column(tableTerritory, "ZoneName")),
			},
		},
		{
			Name:        "TerritoryIntelligence",
			DisplayName: "Territory Intelligence",
			Ordinal:     1,
			Visuals: []VisualDescriptor{
				chart(KindMap, Rect(40, 80, 1840, 500), Column(tableTerritory, "ZoneName"), Measure(tableVisit, "Total Visits")),
				{
					Kind:   KindMatrix,
					Layout: Rect(40, 600, 1840, 420),
					Bindings: []DataBinding{
						Bind(RoleRows, Column(tableTerritory, "ZoneName")),
						Bind(RoleRows, Column(tableTerritory, "RegionName")),
						Bind(RoleRows, Column(tableTerritory, "AreaName")),
						Bind(RoleRows, Column(tableTerritory, "ASMName")),
						Bind(RoleValues, Measure(tableVisit, "Total Visits")),
						Bind(RoleValues, Measure(tableVisit, "Conversion Rate 60D %")),
					},
				},
			},
		},
		{
			Name:        "QualityScorecard",
			DisplayName: "Quality Scorecard",
			Ordinal:     2,
			Visuals: []VisualDescriptor{
				gauge(Rect(40, 80, 580, 250), Measure(tableVisit, "Photo Capture %"), 0.70, "PHOTO RATE"),
				gauge(Rect(670, 80, 580, 250), Measure(tableVisit, "GPS Capture %"), 0.80, "GPS RATE"),
				gauge(Rect(1300, 80, 580, 250), Measure(tableVisit, "Feedback Rate %"), 0.75, "FEEDBACK RATE"),
				chart(KindBar, Rect(40, 350, 900, 300), Column(tableClient, "ClientType"), Measure(tableVisit, "Quality Score")),
				chart(KindTable, Rect(960, 350, 920, 300), Column(tableUser, "EmployeeName"), Measure(tableVisit, "Quality Score")),
				series(chart(KindLine, Rect(40, 670, 1840, 350), Column(tableDate, "MonthYear"), Measure(tableVisit, "Photo Capture %")), Column(tableMeasures, "Quality Metric")),
			},
		},
		{
			Name:        "ConversionFunnel",
			DisplayName: "Conversion Journey",
			Ordinal:     3,
			Visuals: []VisualDescriptor{
				titled(single(KindCard, Rect(40, 80, 250, 120), Measure(tableMeasures, "Site Visits")), "SITE VISITS"),
				titled(single(KindCard, Rect(310, 80, 250, 120), Measure(tableMeasures, "Total Conversions")), "CONVERSIONS"),
				titled(single(KindCard, Rect(580, 80, 250, 120), Measure(tableMeasures, "Total Orders")), "ORDERS"),
				titled(single(KindCard, Rect(850, 80, 250, 120), Measure(tableMeasures, "Completed Orders")), "DELIVERED"),
				titled(single(KindKPI, Rect(1120, 80, 250, 120), Measure(tableMeasures, "Conversion Rate 60D %")), "CONV RATE"),
				titled(single(KindCard, Rect(1390, 80, 250, 120), Measure(tableMeasures, "Avg Days to Conversion")), "AVG DAYS"),
				titled(single(KindGauge, Rect(1660, 80, 220, 120), Measure(tableMeasures, "Order Completion Rate")), "COMPLETION"),
				staged(chart(KindFunnel, Rect(40, 220, 900, 400), Column(tableMeasures, "Funnel Stage"), Measure(tableMeasures, "Stage Count")), funnelStages),
				chart(KindStackedBar, Rect(960, 220, 450, 200), Column(tableMeasures, "Reward Type"), Measure(tableOrder, "Reward Eligible Orders")),
				chart(KindColumn, Rect(1430, 220, 450, 200), Column(tableOrder, "DeliveryMethod"), Measure(tableOrder, "Total Orders")),
				chart(KindColumn, Rect(960, 440, 920, 180), Column(tableMeasures, "Days to Convert Bin"), Measure(tableMeasures, "Conversion Count")),
				series(chart(KindLine, Rect(40, 640, 1840, 380), Column(tableDate, "Date"), Measure(tableMeasures, "Site Visits")), Column(tableMeasures, "Metric Name")),
			},
		},
		{
			Name:        "OrderAnalytics",
			DisplayName: "Order Analytics",
			Ordinal:     4,
			Visuals: []VisualDescriptor{
				titled(single(KindCard, Rect(40, 80, 250, 120), Measure(tableOrder, "Total Orders")), "ORDERS"),
				titled(single(KindCard, Rect(310, 80, 250, 120), Measure(tableOrder, "Total Amount")), "AMOUNT"),
				titled(single(KindCard, Rect(580, 80, 250, 120), Measure(tableOrder, "Avg Order")), "AVG ORDER"),
				titled(single(KindCard, Rect(850, 80, 250, 120), Measure(tableOrder, "Factory DN")), "FACTORY DN"),
				titled(single(KindCard, Rect(1120, 80, 250, 120), Measure(tableOrder, "General Delivery")), "GENERAL"),
				titled(single(KindKPI, Rect(1390, 80, 250, 120), Measure(tableOrder, "Engineer Eligible %")), "ENGINEER %"),
				titled(single(KindKPI, Rect(1660, 80, 220, 120), Measure(tableOrder, "Partner Eligible %")), "PARTNER %"),
				{
					Kind:   KindStackedArea,
					Layout: Rect(40, 220, 900, 350),
					Bindings: []DataBinding{
						Bind(RoleCategory, Column(tableDate, "Week")),
						Bind(RoleValues, Measure(tableOrder, "Factory DN")),
						Bind(RoleValues, Measure(tableOrder, "General Delivery")),
					},
				},
				chart(KindDonut, Rect(960, 220, 450, 350), Column(tableOrder, "OrderStatus"), Measure(tableOrder, "Total Orders")),
				chart(KindBar, Rect(1430, 220, 450, 350), Column(tableTerritory, "ZoneName"), Measure(tableOrder, "Total Amount")),
				{
					Kind:   KindTable,
					Layout: Rect(40, 590, 1840, 400),
					Bindings: []DataBinding{
						Bind(RoleValues, Column(tableOrder, "OrderID")),
						Bind(RoleValues, Column(tableOrder, "SiteName")),
						Bind(RoleValues, Column(tableOrder, "Amount")),
						Bind(RoleValues, Column(tableOrder, "DeliveryMethod")),
						Bind(RoleValues, Column(tableOrder, "OrderStatus")),
						Bind(RoleValues, Column(tableOrder, "EngineerName")),
					},
				},
			},
		},
		{
			Name:        "MyPerformance",
			DisplayName: "My Performance",
			Ordinal:     5,
			Visuals: []VisualDescriptor{
				titled(single(KindCard, Rect(40, 80, 200, 100), Column(tableUser, "RoleName")), "Role Badge"),
				titled(single(KindCard, Rect(260, 80, 300, 100), Measure(tableMeasures, "Territory")), "TERRITORY"),
				titled(single(KindGauge, Rect(580, 80, 250, 100), Measure(tableMeasures, "Performance Score")), "SCORE"),
				{
					Kind:   KindBullet,
					Layout: Rect(40, 620, 1840, 200),
					Bindings: []DataBinding{
						Bind(RoleValues, Measure(tableMeasures, "Visits")),
						Bind(RoleValues, Measure(tableMeasures, "Conversions")),
						Bind(RoleValues, Measure(tableMeasures, "Quality")),
						Bind(RoleValues, Measure(tableMeasures, "Orders")),
					},
				},
				{
					Kind:   KindMultiRowCard,
					Layout: Rect(40, 840, 1840, 180),
					Bindings: []DataBinding{
						Bind(RoleValues, Measure(tableMeasures, "Top Performer")),
						Bind(RoleValues, Measure(tableMeasures, "Quality Star")),
						Bind(RoleValues, Measure(tableMeasures, "Streak")),
						Bind(RoleValues, Measure(tableMeasures, "Conversion King")),
					},
				},
			},
		},
	}
}

func single(kind Kind, layout Layout, value FieldRef) VisualDescriptor {
	return VisualDescriptor{Kind: kind, Layout: layout, Bindings: []DataBinding{Bind(RoleValues, value)}}
}

func chart(kind Kind, layout Layout, category, value FieldRef) VisualDescriptor {
	return VisualDescriptor{
		Kind:     kind,
		Layout:   layout,
		Bindings: []DataBinding{Bind(RoleCategory, category), Bind(RoleValues, value)},
	}
}

func slicer(layout Layout, field FieldRef) VisualDescriptor {
	return VisualDescriptor{Kind: KindSlicer, Layout: layout, Bindings: []DataBinding{Bind(RoleValues, field)}}
}

func gauge(layout Layout, value FieldRef, target float64, title string) VisualDescriptor {
	v := titled(single(KindGauge, layout, value), title)
	v.Target = &target
	return v
}

func titled(v VisualDescriptor, title string) VisualDescriptor {
	v.Title = title
	return v
}

func staged(v VisualDescriptor, stages []string) VisualDescriptor {
	v.Stages = append([]string(nil), stages...)
	return v
}

func series(v VisualDescriptor, field FieldRef) VisualDescriptor {
	v.Bindings = append(v.Bindings, Bind(RoleSeries, field))
	return v
}
