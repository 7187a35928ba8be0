package semantic

import (
	"bufio"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// yamlDoc is one "--- !u!<class_id> &<anchor>" tagged document from a
// Unity text-YAML asset.
type yamlDoc struct {
	ClassID int32
	PathID  int64
	Body    string
}

// splitYAMLDocuments breaks a Unity text-YAML asset into its tagged
// documents. Every document is returned, whatever its class, so callers
// can decode the GameObject/Transform subset and count or skip the rest
// explicitly.
func splitYAMLDocuments(text string) []yamlDoc {
	var docs []yamlDoc
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<24)

	var cur *yamlDoc
	var body strings.Builder
	flush := func() {
		if cur != nil {
			cur.Body = body.String()
			docs = append(docs, *cur)
		}
		body.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "--- ") || line == "---" {
			flush()
			cur = parseYAMLDocHeader(line)
			continue
		}
		if strings.HasPrefix(line, "%") {
			continue
		}
		if cur != nil {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flush()
	return docs
}

func parseYAMLDocHeader(line string) *yamlDoc {
	doc := &yamlDoc{}
	for _, f := range strings.Fields(line) {
		switch {
		case strings.HasPrefix(f, "!u!"):
			if v, err := strconv.Atoi(strings.TrimPrefix(f, "!u!")); err == nil {
				doc.ClassID = int32(v)
			}
		case strings.HasPrefix(f, "&"):
			if v, err := strconv.ParseInt(strings.TrimPrefix(f, "&"), 10, 64); err == nil {
				doc.PathID = v
			}
		}
	}
	return doc
}

type yamlFileID struct {
	FileID int64 `yaml:"fileID"`
}

type yamlVec3 struct {
	X, Y, Z float32
}

type yamlQuat struct {
	X, Y, Z, W float32
}

type yamlGameObjectBody struct {
	GameObject struct {
		Name      string `yaml:"m_Name"`
		IsActive  int    `yaml:"m_IsActive"`
		Layer     int32  `yaml:"m_Layer"`
		Component []struct {
			Component yamlFileID `yaml:"component"`
		} `yaml:"m_Component"`
	} `yaml:"GameObject"`
}

type yamlTransformBody struct {
	Transform struct {
		GameObject     yamlFileID   `yaml:"m_GameObject"`
		LocalRotation  yamlQuat     `yaml:"m_LocalRotation"`
		LocalPosition  yamlVec3     `yaml:"m_LocalPosition"`
		LocalScale     yamlVec3     `yaml:"m_LocalScale"`
		Children       []yamlFileID `yaml:"m_Children"`
		Father         yamlFileID   `yaml:"m_Father"`
	} `yaml:"Transform"`
}

// ParseYAML decodes the minimal Unity text-YAML subset (GameObject and
// Transform documents) into a Context. Documents of any other class are
// counted as skipped and otherwise ignored — legacy .unitypackage assets
// exported in text form rarely carry anything else the core needs.
func ParseYAML(sourceName string, text string) (*Context, int, error) {
	ctx := NewContext(sourceName)
	skipped := 0
	for _, doc := range splitYAMLDocuments(text) {
		switch doc.ClassID {
		case ClassGameObject:
			var body yamlGameObjectBody
			if err := yaml.Unmarshal([]byte(doc.Body), &body); err != nil {
				skipped++
				continue
			}
			g := body.GameObject
			comps := make([]PPtr, 0, len(g.Component))
			for _, c := range g.Component {
				comps = append(comps, PPtr{PathID: c.Component.FileID})
			}
			ctx.AddGameObject(GameObject{
				PathID:     doc.PathID,
				Name:       g.Name,
				IsActive:   g.IsActive != 0,
				Layer:      g.Layer,
				Components: comps,
			})
		case ClassTransform:
			var body yamlTransformBody
			if err := yaml.Unmarshal([]byte(doc.Body), &body); err != nil {
				skipped++
				continue
			}
			t := body.Transform
			children := make([]PPtr, 0, len(t.Children))
			for _, c := range t.Children {
				children = append(children, PPtr{PathID: c.FileID})
			}
			ctx.AddTransform(Transform{
				PathID:     doc.PathID,
				GameObject: PPtr{PathID: t.GameObject.FileID},
				Parent:     PPtr{PathID: t.Father.FileID},
				Children:   children,
				RotationW:  t.LocalRotation.W, RotationX: t.LocalRotation.X,
				RotationY: t.LocalRotation.Y, RotationZ: t.LocalRotation.Z,
				PositionX: t.LocalPosition.X, PositionY: t.LocalPosition.Y, PositionZ: t.LocalPosition.Z,
				ScaleX: t.LocalScale.X, ScaleY: t.LocalScale.Y, ScaleZ: t.LocalScale.Z,
			})
		default:
			skipped++
		}
	}
	return ctx, skipped, nil
}
