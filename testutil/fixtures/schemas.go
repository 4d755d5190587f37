// =============================================================================
// 📄 Schema 样例
// =============================================================================
// 供特性函数与端到端测试使用的 schema 源文本。行列注释以 0 为起点。
// =============================================================================
package fixtures

// URI 常量
const (
	MusicURI    = "file:///music.sd"
	CatalogURI  = "file:///catalog.sd"
	ArtistURI   = "file:///artist.sd"
	ScenarioURI = "file:///a.sd"
)

// Music 单文档 schema，含嵌套声明与注释
//
//	line 2: field title   (title at 14..19)
//	line 8: rank-profile fresh
//	line 9: function boost
const Music = `schema music {
    document music {
        field title type string {
            indexing: summary | index
        }
        field tags type array<string> {}
    }
    # ranking
    rank-profile fresh inherits default {
        function boost() {
            expression: 2.5
        }
    }
}
`

// Catalog 声明 struct album
//
//	line 1: struct album (album at 11..16)
const Catalog = `schema catalog {
    struct album {
        field title type string {}
    }
}
`

// Artist 在字段类型中引用 Catalog 的 album
//
//	line 3: field albums type array<album> (album at 32..37)
const Artist = `schema artist {
    document artist {
        field name type string {}
        field albums type array<album> {}
    }
}
`

// Unclosed 缺少一个右花括号
const Unclosed = `schema broken {
    document broken {
        field f type string {}
`

// Scenario 初始与编辑后的文本
const (
	ScenarioBefore = "search a {}"
	ScenarioAfter  = "search a { field f type string {} }"
)
