package model

// Fallback returns the built-in demonstration dataset shown when the live
// data source cannot be reached. Relations reference entities by name.
func Fallback() Dataset {
	entities := []Entity{
		{ID: "e01", Name: "国务院", Type: "组织", Weight: 8},
		{ID: "e02", Name: "国家发展和改革委员会", Type: "组织", Weight: 6},
		{ID: "e03", Name: "财政部", Type: "组织", Weight: 6},
		{ID: "e04", Name: "中国人民银行", Type: "组织", Weight: 6},
		{ID: "e05", Name: "工业和信息化部", Type: "组织", Weight: 5},
		{ID: "e06", Name: "新质生产力", Type: "概念", Weight: 7},
		{ID: "e07", Name: "十四五规划", Type: "政策", Weight: 8},
		{ID: "e08", Name: "数字经济发展规划", Type: "政策", Weight: 5},
		{ID: "e09", Name: "碳达峰行动方案", Type: "政策", Weight: 5},
		{ID: "e10", Name: "数据安全法", Type: "法规", Weight: 4},
		{ID: "e11", Name: "个人信息保护法", Type: "法规", Weight: 4},
		{ID: "e12", Name: "粤港澳大湾区", Type: "地区", Weight: 5},
		{ID: "e13", Name: "长三角一体化", Type: "地区", Weight: 5},
		{ID: "e14", Name: "人工智能", Type: "产业", Weight: 6},
		{ID: "e15", Name: "新能源汽车", Type: "产业", Weight: 5},
		{ID: "e16", Name: "货币政策", Type: "概念", Weight: 4},
	}

	relations := []Relation{
		{ID: "r01", Source: "国务院", Target: "十四五规划", Label: "发布"},
		{ID: "r02", Source: "国务院", Target: "国家发展和改革委员会", Label: "领导"},
		{ID: "r03", Source: "国家发展和改革委员会", Target: "数字经济发展规划", Label: "制定"},
		{ID: "r04", Source: "国家发展和改革委员会", Target: "碳达峰行动方案", Label: "牵头"},
		{ID: "r05", Source: "财政部", Target: "新能源汽车", Label: "补贴"},
		{ID: "r06", Source: "中国人民银行", Target: "货币政策", Label: "执行"},
		{ID: "r07", Source: "工业和信息化部", Target: "人工智能", Label: "推动"},
		{ID: "r08", Source: "工业和信息化部", Target: "新能源汽车", Label: "监管"},
		{ID: "r09", Source: "十四五规划", Target: "新质生产力", Label: "提出"},
		{ID: "r10", Source: "十四五规划", Target: "粤港澳大湾区", Label: "部署"},
		{ID: "r11", Source: "十四五规划", Target: "长三角一体化", Label: "部署"},
		{ID: "r12", Source: "数字经济发展规划", Target: "人工智能", Label: "支持"},
		{ID: "r13", Source: "数字经济发展规划", Target: "数据安全法", Label: "衔接"},
		{ID: "r14", Source: "数据安全法", Target: "个人信息保护法", Label: "配套"},
		{ID: "r15", Source: "新质生产力", Target: "人工智能", Label: "包含"},
		{ID: "r16", Source: "碳达峰行动方案", Target: "新能源汽车", Label: "促进"},
		{ID: "r17", Source: "货币政策", Target: "财政部", Label: "协同"},
	}

	return Dataset{Entities: entities, Relations: relations}
}
