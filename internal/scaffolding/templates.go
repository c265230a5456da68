package scaffolding

import "text/template"

// ProjectContext is the data available to every project template.
type ProjectContext struct {
	// Name is the package and executable target name.
	Name string
	// Dependency is the site library the package depends on.
	Dependency string
}

// DefaultDependency is the site library new projects depend on.
const DefaultDependency = "https://github.com/pinkqween/SHTML.git"

var packageTemplate = template.Must(template.New("Package.swift").Parse(`// swift-tools-version: 5.9
import PackageDescription

let package = Package(
    name: "{{.Name}}",
    platforms: [.macOS(.v13)],
    products: [
        .executable(name: "{{.Name}}", targets: ["{{.Name}}"])
    ],
    dependencies: [
        .package(url: "{{.Dependency}}", branch: "main")
    ],
    targets: [
        .executableTarget(name: "{{.Name}}", dependencies: ["SHTML"])
    ]
)
`))

var mainTemplate = template.Must(template.New("main.swift").Parse(`import SHTML

struct MyWebsite: Website {
    var body: some HTML {
        html {
            head {
                meta().charset("UTF-8")
                title("{{.Name}}")
                link().rel("stylesheet").href("/Assets/styles.css")
            }
            SHTML.body {
                h1 { "Hello SHTML!" }
            }
        }
    }
}

let site = MyWebsite()
site.generate()
`))

const gitignore = `.DS_Store
/.build
/Packages
/.shtml
public/index.html
public/Assets
`

const stylesheet = `body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
    margin: 0 auto;
    max-width: 720px;
    padding: 40px 20px;
}
`
