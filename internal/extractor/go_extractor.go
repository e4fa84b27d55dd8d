package extractor

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"typescan/internal/typeinfo"
)

var (
	markerRe     = regexp.MustCompile(`(?:^|\s)@([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)`)
	identRe      = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	genericArgRe = regexp.MustCompile(`\[.*\]$`)
)

// GoExtractor implements LanguageExtractor for Go.
type GoExtractor struct{}

func (g *GoExtractor) GetLanguage() *sitter.Language {
	return golang.GetLanguage()
}

func (g *GoExtractor) GetQuery() string {
	return `
		(type_spec) @type
		(type_alias) @alias
		(method_declaration) @method
		(var_spec) @var
		(import_spec) @import
	`
}

func (g *GoExtractor) NewCollector(path string, sourceCode []byte) Collector {
	return &goCollector{
		path:       path,
		src:        sourceCode,
		imports:    make(map[string]string),
		methods:    make(map[string][]typeinfo.Method),
		assertions: make(map[string][]string),
	}
}

type goCollector struct {
	path    string
	src     []byte
	imports map[string]string
	types   []*TypeDecl
	// methods and assertions are keyed by the receiver/implementing type name
	// and attached once the whole file has been seen.
	methods    map[string][]typeinfo.Method
	assertions map[string][]string
}

func (c *goCollector) Collect(captureName string, node *sitter.Node) {
	switch captureName {
	case "type", "alias":
		if decl := c.extractTypeDecl(node, captureName == "alias"); decl != nil {
			c.types = append(c.types, decl)
		}
	case "method":
		c.extractMethod(node)
	case "var":
		c.extractAssertion(node)
	case "import":
		c.extractImport(node)
	}
}

func (c *goCollector) File() *File {
	for _, t := range c.types {
		if t.Kind != typeinfo.KindInterface {
			t.Methods = append(t.Methods, c.methods[t.Name]...)
		}
		t.Asserts = append(t.Asserts, c.assertions[t.Name]...)
	}
	return &File{Path: c.path, Imports: c.imports, Types: c.types}
}

// Extraction Logic

func (c *goCollector) extractTypeDecl(node *sitter.Node, alias bool) *TypeDecl {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	parentNode := node.Parent()
	if parentNode == nil || parentNode.Type() != "type_declaration" {
		parentNode = node
	}
	docComment := extractDocComment(parentNode, c.src)
	if docComment == "" && parentNode != node {
		docComment = extractDocComment(node, c.src)
	}

	decl := &TypeDecl{
		Name:        nameNode.Content(c.src),
		Kind:        typeinfo.KindOther,
		StartLine:   int(node.StartPoint().Row + 1),
		EndLine:     int(node.EndPoint().Row + 1),
		Description: docComment,
		Markers:     extractMarkers(docComment),
	}

	typeNode := node.ChildByFieldName("type")
	switch {
	case alias:
		decl.Kind = typeinfo.KindAlias
		if typeNode != nil {
			decl.Embeds = []string{typeNode.Content(c.src)}
		}
	case typeNode == nil:
	case typeNode.Type() == "struct_type":
		decl.Kind = typeinfo.KindStruct
		decl.Embeds = c.extractStructEmbeds(typeNode)
	case typeNode.Type() == "interface_type":
		decl.Kind = typeinfo.KindInterface
		decl.Embeds, decl.Methods = c.extractInterface(typeNode)
	}
	return decl
}

func (c *goCollector) extractStructEmbeds(structNode *sitter.Node) []string {
	var embeds []string
	var fieldList *sitter.Node
	for i := 0; i < int(structNode.ChildCount()); i++ {
		child := structNode.Child(i)
		if child.Type() == "field_declaration_list" {
			fieldList = child
			break
		}
	}
	if fieldList == nil {
		return nil
	}

	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		fieldDecl := fieldList.NamedChild(i)
		if fieldDecl.Type() != "field_declaration" {
			continue
		}
		named := false
		for j := 0; j < int(fieldDecl.NamedChildCount()); j++ {
			if fieldDecl.NamedChild(j).Type() == "field_identifier" {
				named = true
				break
			}
		}
		if named {
			continue
		}
		if typeNode := fieldDecl.ChildByFieldName("type"); typeNode != nil {
			embeds = append(embeds, typeNode.Content(c.src))
		}
	}
	return embeds
}

func (c *goCollector) extractInterface(interfaceNode *sitter.Node) ([]string, []typeinfo.Method) {
	var embeds []string
	var methods []typeinfo.Method

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "method_elem", "method_spec":
				nameNode := child.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				methods = append(methods, c.method(nameNode, child))
			case "type_elem", "constraint_elem", "interface_type_name":
				// Unions (A | B) constrain type sets; they do not add methods.
				if child.NamedChildCount() == 1 {
					embeds = append(embeds, child.NamedChild(0).Content(c.src))
				}
			case "type_identifier", "qualified_type":
				embeds = append(embeds, child.Content(c.src))
			case "method_spec_list":
				visit(child)
			}
		}
	}
	visit(interfaceNode)
	return embeds, methods
}

func (c *goCollector) extractMethod(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	receiverNode := node.ChildByFieldName("receiver")
	if nameNode == nil || receiverNode == nil {
		return
	}
	receivers := extractParams(receiverNode, c.src)
	if len(receivers) != 1 {
		return
	}
	recv := receiverTypeName(receivers[0].Type)
	c.methods[recv] = append(c.methods[recv], c.method(nameNode, node))
}

// extractAssertion records `var _ I = (*T)(nil)` style compile-time checks
// against every identifier on the right-hand side.
func (c *goCollector) extractAssertion(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	typeNode := node.ChildByFieldName("type")
	valueNode := node.ChildByFieldName("value")
	if nameNode == nil || typeNode == nil || valueNode == nil || nameNode.Content(c.src) != "_" {
		return
	}
	iface := typeNode.Content(c.src)
	seen := make(map[string]bool)
	for _, ident := range identRe.FindAllString(valueNode.Content(c.src), -1) {
		if ident == "nil" || seen[ident] {
			continue
		}
		seen[ident] = true
		c.assertions[ident] = append(c.assertions[ident], iface)
	}
}

func (c *goCollector) extractImport(node *sitter.Node) {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	importPath := strings.Trim(pathNode.Content(c.src), "\"`")
	local := importPath
	if idx := strings.LastIndex(local, "/"); idx >= 0 {
		local = local[idx+1:]
	}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		switch name := nameNode.Content(c.src); name {
		case "_", ".":
			return
		default:
			local = name
		}
	}
	c.imports[local] = importPath
}

func (c *goCollector) method(nameNode, sigNode *sitter.Node) typeinfo.Method {
	var params []Param
	if paramsNode := sigNode.ChildByFieldName("parameters"); paramsNode != nil {
		params = extractParams(paramsNode, c.src)
	}
	var returns []Param
	if resultNode := sigNode.ChildByFieldName("result"); resultNode != nil {
		returns = extractReturns(resultNode, c.src)
	}
	return typeinfo.Method{
		Name:      nameNode.Content(c.src),
		Signature: canonicalSignature(params, returns),
	}
}

func extractParams(paramsNode *sitter.Node, sourceCode []byte) []Param {
	params := []Param{}
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		pNode := paramsNode.NamedChild(i)
		if pNode.Type() != "parameter_declaration" && pNode.Type() != "variadic_parameter_declaration" {
			continue
		}
		pType := ""
		if tn := pNode.ChildByFieldName("type"); tn != nil {
			pType = tn.Content(sourceCode)
		}
		if pNode.Type() == "variadic_parameter_declaration" {
			pType = "..." + pType
		}
		var names []string
		for j := 0; j < int(pNode.NamedChildCount()); j++ {
			if child := pNode.NamedChild(j); child.Type() == "identifier" {
				names = append(names, child.Content(sourceCode))
			}
		}
		if len(names) == 0 {
			params = append(params, Param{Type: pType})
			continue
		}
		for _, n := range names {
			params = append(params, Param{Name: n, Type: pType})
		}
	}
	return params
}

func extractReturns(resultNode *sitter.Node, sourceCode []byte) []Param {
	if resultNode.Type() == "parameter_list" {
		return extractParams(resultNode, sourceCode)
	}
	return []Param{{Type: resultNode.Content(sourceCode)}}
}

// receiverTypeName reduces "*Dog", "Dog[T]" or "*Dog[K, V]" to "Dog".
func receiverTypeName(t string) string {
	t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "*"))
	return genericArgRe.ReplaceAllString(t, "")
}

func extractMarkers(doc string) []string {
	var markers []string
	for _, line := range strings.Split(doc, "\n") {
		for _, m := range markerRe.FindAllStringSubmatch(line, -1) {
			markers = append(markers, m[1])
		}
	}
	return markers
}

func extractDocComment(node *sitter.Node, sourceCode []byte) string {
	var commentLines []string
	currentNode := node
	for {
		prevSibling := currentNode.PrevSibling()
		if prevSibling == nil || (currentNode.StartPoint().Row-prevSibling.EndPoint().Row > 1) {
			break
		}
		if prevSibling.Type() != "comment" {
			break
		}
		commentLines = append([]string{prevSibling.Content(sourceCode)}, commentLines...)
		currentNode = prevSibling
	}
	return cleanDocComment(strings.Join(commentLines, "\n"))
}

func cleanDocComment(rawComment string) string {
	if rawComment == "" {
		return ""
	}
	lines := strings.Split(rawComment, "\n")
	var cleaned []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "//")
		l = strings.TrimPrefix(l, "/*")
		l = strings.TrimSuffix(l, "*/")
		cleaned = append(cleaned, strings.TrimSpace(l))
	}
	return strings.Join(cleaned, "\n")
}
