// Package tool defines the capability contract the agent loop invokes on the
// model's behalf, a name-keyed registry, and a set of filesystem tools.
//
// # Defining Tools
//
// Implement Tool directly, or build one from a typed function whose
// parameter schema is reflected from the argument struct:
//
//	type ReadArgs struct {
//	    Path string `json:"path" jsonschema:"description=File to read"`
//	}
//
//	read := tool.Func("read", "Read a file",
//	    func(ctx context.Context, args ReadArgs, onProgress tool.ProgressFunc) (tool.Result, error) {
//	        data, err := os.ReadFile(args.Path)
//	        if err != nil {
//	            return tool.Result{}, err
//	        }
//	        return tool.Text(string(data)), nil
//	    })
//
// Fields without omitempty are required. Arguments reach Execute already
// validated against the schema.
//
// # Cancellation
//
// The ctx passed to Execute is done when the run is aborted or the per-call
// timeout expires. Long-running tools should check it; the agent records a
// cancelled result either way.
//
// # Registry
//
//	tools := tool.NewRegistry().Add(tool.FS(tool.WithBasePath(workdir))...)
//
// Specs returns the declarations for a model request and Schema feeds the
// tool-call assembler.
package tool
