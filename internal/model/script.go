package model

import "os"

// writeInferenceScript materializes the joblib bridge script next to the
// model artifact so deployments need nothing beyond the artifacts and a
// Python runtime with joblib, pandas and scikit-learn installed.
func writeInferenceScript(scriptPath string) error {
	script := `#!/usr/bin/env python3
"""Joblib inference bridge for the player rating pipeline.

Reads one JSON request on stdin:
  {"op": "verify"}
  {"op": "predict", "columns": [...], "rows": [[...], ...]}
Writes one JSON response on stdout.
"""
import json
import math
import sys

try:
    import joblib
    import numpy as np
    import pandas as pd
except ImportError as exc:
    print(json.dumps({"error": f"python dependency missing: {exc}"}))
    sys.exit(1)


def categorical_columns(transformer):
    cols = []
    try:
        if hasattr(transformer, "transformers"):
            for _, step, columns in transformer.transformers:
                if "onehot" in str(step).lower() or "categorical" in str(step).lower():
                    cols = list(columns)
        elif hasattr(transformer, "named_steps"):
            for name, step in transformer.named_steps.items():
                if hasattr(step, "get_feature_names_out") and (
                    "onehot" in name.lower() or "categorical" in name.lower()
                ):
                    features = step.get_feature_names_out()
                    cols = sorted({f.split("_")[0] for f in features if "_" in f})
    except Exception:
        cols = []
    return [str(c) for c in cols]


def main():
    if len(sys.argv) != 4:
        print(json.dumps({"error": "usage: joblib_inference.py <model> <transformer> <target_pipeline>"}))
        sys.exit(1)

    model_path, transformer_path, target_path = sys.argv[1:4]

    try:
        request = json.load(sys.stdin)
        model = joblib.load(model_path)
        transformer = joblib.load(transformer_path)
        target = joblib.load(target_path)

        if request.get("op") == "verify":
            print(json.dumps({"ok": True, "categorical_columns": categorical_columns(transformer)}))
            return

        df = pd.DataFrame(request["rows"], columns=request["columns"])
        encoded = transformer.transform(df)
        raw = model.predict(encoded)
        scaled = np.round(target.inverse_transform(np.asarray(raw).reshape(-1, 1)), 2)

        predictions = []
        for value in scaled[:, 0]:
            value = float(value)
            predictions.append(value if math.isfinite(value) else None)

        print(json.dumps({"predictions": predictions}))
    except Exception as exc:
        print(json.dumps({"error": str(exc)}))
        sys.exit(1)


if __name__ == "__main__":
    main()
`
	return os.WriteFile(scriptPath, []byte(script), 0o755)
}
